/*
Copyright 2024 Nokia.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package buildspec

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"

	"github.com/henderiw/logger/log"
	stackv1alpha1 "github.com/kform-dev/kstack/apis/stack/v1alpha1"
	"github.com/kform-dev/kstack/pkg/config"
	"github.com/kform-dev/kstack/pkg/recorder"
	"github.com/kform-dev/kstack/pkg/recorder/diag"
)

const (
	appRoot = "/app"
	// java 9 and later read the classpath from an argument file
	classpathFile  = appRoot + "/jib-classpath-file"
	minJavaVersion = 8
)

var (
	envExpr  = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)\}`)
	modeExpr = regexp.MustCompile(`^0?[0-7]{3}$`)
)

// Descriptor describes the application container image. Building it is
// left to the container tooling.
type Descriptor struct {
	Image           string                         `json:"image" yaml:"image"`
	BaseImage       string                         `json:"baseImage,omitempty" yaml:"baseImage,omitempty"`
	JavaVersion     int                            `json:"javaVersion" yaml:"javaVersion"`
	Entrypoint      []string                       `json:"entrypoint" yaml:"entrypoint"`
	Dependencies    []stackv1alpha1.DependencySpec `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	FilePermissions map[string]string              `json:"filePermissions,omitempty" yaml:"filePermissions,omitempty"`
	// Warnings are not part of the descriptor
	Warnings []string `json:"-" yaml:"-"`
}

// New validates the image spec and returns its descriptor. Build
// environment references ${env.NAME} in the jvm flags are substituted with
// lookupEnv; unset variables become empty and are reported as warnings.
func New(ctx context.Context, spec stackv1alpha1.ImageSpec, lookupEnv func(string) (string, bool)) (*Descriptor, error) {
	log := log.FromContext(ctx).With("image", spec.Image)
	rec := recorder.New[diag.Diagnostic]()

	if spec.Image == "" {
		rec.Record(diag.DiagFromErr(config.InvalidParameter("image.image", "is required")))
	}
	if spec.JavaVersion < minJavaVersion {
		rec.Record(diag.DiagFromErr(config.InvalidParameter("image.javaVersion", "must be at least %d, got %d", minJavaVersion, spec.JavaVersion)))
	}
	if spec.MainClass == "" {
		rec.Record(diag.DiagFromErr(config.InvalidParameter("image.mainClass", "is required")))
	}
	coordinates := map[string]struct{}{}
	for i, dep := range spec.Dependencies {
		field := fmt.Sprintf("image.dependencies[%d]", i)
		if dep.Group == "" || dep.Artifact == "" {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(field, "group and artifact are required")))
			continue
		}
		if _, ok := coordinates[dep.Coordinate()]; ok {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(field, "duplicate dependency %s", dep.Coordinate())))
		}
		coordinates[dep.Coordinate()] = struct{}{}
		if _, err := releaseVersion(dep.Version); err != nil {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(field+".version", "%s: %s", dep.Coordinate(), err.Error())))
		}
	}
	paths := make([]string, 0, len(spec.FilePermissions))
	for p := range spec.FilePermissions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		field := fmt.Sprintf("image.filePermissions[%s]", p)
		if !path.IsAbs(p) {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(field, "path must be absolute")))
		}
		if !modeExpr.MatchString(spec.FilePermissions[p]) {
			rec.Record(diag.DiagFromErr(config.InvalidParameter(field, "invalid octal mode %q", spec.FilePermissions[p])))
		}
	}
	if err := rec.Get().Error(); err != nil {
		return nil, err
	}

	d := &Descriptor{
		Image:           spec.Image,
		BaseImage:       spec.BaseImage,
		JavaVersion:     spec.JavaVersion,
		Dependencies:    append([]stackv1alpha1.DependencySpec{}, spec.Dependencies...),
		FilePermissions: spec.FilePermissions,
		Warnings:        []string{},
	}
	unset := map[string]struct{}{}
	d.Entrypoint = []string{"java"}
	for _, flag := range spec.JVMFlags {
		d.Entrypoint = append(d.Entrypoint, envExpr.ReplaceAllStringFunc(flag, func(match string) string {
			name := envExpr.FindStringSubmatch(match)[1]
			v, ok := lookupEnv(name)
			if !ok {
				if _, reported := unset[name]; !reported {
					unset[name] = struct{}{}
					log.Warn("build environment variable not set", "name", name)
					d.Warnings = append(d.Warnings, fmt.Sprintf("build environment variable %s not set", name))
				}
			}
			return v
		}))
	}
	d.Entrypoint = append(d.Entrypoint, "-cp", classpath(spec.JavaVersion), spec.MainClass)
	log.Debug("image descriptor", "dependencies", len(d.Dependencies), "flags", len(spec.JVMFlags))
	return d, nil
}

func classpath(javaVersion int) string {
	if javaVersion > 8 {
		return "@" + classpathFile
	}
	return fmt.Sprintf("%[1]s/resources:%[1]s/classes:%[1]s/libs/*", appRoot)
}
