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

package config

import (
	"fmt"
	"strings"
)

// MissingError is returned when required configuration keys have no value.
// It is raised before anything is declared.
type MissingError struct {
	Keys []string
}

func (r *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(r.Keys, ", "))
}

// InvalidParameterError is returned by the local structural checks, e.g.
// sizing bounds that are violated or a malformed network block.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (r *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", r.Field, r.Reason)
}

func InvalidParameter(field, format string, a ...any) error {
	return &InvalidParameterError{Field: field, Reason: fmt.Sprintf(format, a...)}
}
