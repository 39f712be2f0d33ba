package buildspec

import (
	"context"
	"fmt"

	"github.com/apparentlymart/go-versions/versions"
	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/recorder"
	"github.com/kform-dev/kstack/pkg/recorder/diag"
	"github.com/pkg/errors"
)

// releaseVersion parses a dependency version. Only release versions are
// canonical: prereleases and free form tags are rejected.
func releaseVersion(s string) (versions.Version, error) {
	v, err := versions.ParseVersion(s)
	if err != nil {
		return versions.Version{}, errors.Errorf("version %q is not a release version", s)
	}
	if v.Prerelease != "" {
		return versions.Version{}, errors.Errorf("version %q is a prerelease", s)
	}
	return v, nil
}

// Reconcile merges dependency snapshots that drifted apart into one list.
// Per coordinate the newest release version wins; non canonical versions are
// ignored. A coordinate without any release version is an error. The order
// and scope of the first occurrence of a coordinate are kept.
func Reconcile(ctx context.Context, snapshots ...[]stackv1alpha1.DependencySpec) ([]stackv1alpha1.DependencySpec, error) {
	log := log.FromContext(ctx)
	rec := recorder.New[diag.Diagnostic]()

	order := []string{}
	first := map[string]stackv1alpha1.DependencySpec{}
	candidates := map[string]versions.List{}
	for i, snapshot := range snapshots {
		for _, dep := range snapshot {
			coordinate := dep.Coordinate()
			if _, ok := first[coordinate]; !ok {
				order = append(order, coordinate)
				first[coordinate] = dep
			}
			v, err := releaseVersion(dep.Version)
			if err != nil {
				log.Warn("non canonical version ignored", "snapshot", i, "coordinate", coordinate, "version", dep.Version)
				continue
			}
			candidates[coordinate] = append(candidates[coordinate], v)
		}
	}

	deps := make([]stackv1alpha1.DependencySpec, 0, len(order))
	for _, coordinate := range order {
		list := candidates[coordinate]
		if len(list) == 0 {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(
				fmt.Sprintf("image.dependencies[%s]", coordinate), "no release version in any snapshot")))
			continue
		}
		newest := list.Newest()
		if drifted(list) {
			log.Info("dependency versions drifted", "coordinate", coordinate, "selected", newest.String())
		}
		dep := first[coordinate]
		dep.Version = newest.String()
		deps = append(deps, dep)
	}
	if err := rec.Get().Error(); err != nil {
		return nil, err
	}
	return deps, nil
}

func drifted(list versions.List) bool {
	for _, v := range list {
		if !v.Same(list[0]) {
			return true
		}
	}
	return false
}
