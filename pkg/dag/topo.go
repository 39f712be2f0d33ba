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

package dag

import (
	"context"
	"fmt"
	"sort"
)

// TopologicalLevels groups the vertices in levels: every vertex only depends
// on vertices of earlier levels. Vertices within a level are sorted by name.
// The root vertex is not part of the result. When the graph contains a cycle
// the vertices that could not be ordered are reported in the error.
func (r *dag[T1]) TopologicalLevels(ctx context.Context) ([][]string, error) {
	inDegree := map[string]int{}
	for vertexName := range r.GetVertices() {
		if vertexName == Root {
			continue
		}
		inDegree[vertexName] = 0
		for _, upVertex := range r.GetUpVertexes(vertexName) {
			if upVertex == Root {
				continue
			}
			inDegree[vertexName]++
		}
	}

	levels := [][]string{}
	for len(inDegree) > 0 {
		level := []string{}
		for vertexName, degree := range inDegree {
			if degree == 0 {
				level = append(level, vertexName)
			}
		}
		if len(level) == 0 {
			cycle := make([]string, 0, len(inDegree))
			for vertexName := range inDegree {
				cycle = append(cycle, vertexName)
			}
			sort.Strings(cycle)
			return nil, fmt.Errorf("dependency cycle between: %v", cycle)
		}
		sort.Strings(level)
		for _, vertexName := range level {
			delete(inDegree, vertexName)
			for _, downVertex := range r.GetDownVertexes(vertexName) {
				if _, ok := inDegree[downVertex]; ok {
					inDegree[downVertex]--
				}
			}
		}
		levels = append(levels, level)
	}
	return levels, nil
}
