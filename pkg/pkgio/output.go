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

package pkgio

import (
	"strings"
)

type OutputSink int64

const (
	OutputSink_None OutputSink = iota
	OutputSink_File
	OutputSink_Dir
	OutputSink_StdOut
	OutputSink_Memory
)

// OutputSinkFor selects the sink for an output path: stdout when empty or
// "-", a directory when the path ends with a slash, a file otherwise.
func OutputSinkFor(path string) OutputSink {
	switch {
	case path == "" || path == "-":
		return OutputSink_StdOut
	case strings.HasSuffix(path, "/"):
		return OutputSink_Dir
	default:
		return OutputSink_File
	}
}
