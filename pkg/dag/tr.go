/*
Copyright 2023 Nokia.

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

	"github.com/henderiw/logger/log"
)

// TransitiveReduction removes every edge from -> to for which to is also
// reachable from one of the other down vertices of from.
func (r *dag[T1]) TransitiveReduction(ctx context.Context) {
	log := log.FromContext(ctx)
	for vertexName := range r.GetVertices() {
		downVertices := r.GetDownVertexes(vertexName)
		for _, to := range downVertices {
			for _, via := range downVertices {
				if via == to {
					continue
				}
				if r.reachable(via, to, map[string]struct{}{}) {
					log.Debug("transitive reduction", "from", vertexName, "to", to, "via", via)
					r.Disconnect(ctx, vertexName, to)
					break
				}
			}
		}
	}
}

func (r *dag[T1]) reachable(from, to string, visited map[string]struct{}) bool {
	if from == to {
		return true
	}
	if _, ok := visited[from]; ok {
		return false
	}
	visited[from] = struct{}{}
	for _, downVertex := range r.GetDownVertexes(from) {
		if r.reachable(downVertex, to, visited) {
			return true
		}
	}
	return false
}
