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
	"fmt"
	"io"
	"sort"
	"sync"
)

const (
	NotFound = "not found"
	// Root is the vertex every independent vertex hangs off
	Root = "root"
)

type DAG[T1 any] interface {
	AddVertex(ctx context.Context, s string, v T1) error
	Connect(ctx context.Context, from, to string)
	Disconnect(ctx context.Context, from, to string)
	VertexExists(s string) bool
	GetVertex(s string) (T1, error)
	GetVertices() map[string]T1
	GetDownVertexes(from string) []string
	GetUpVertexes(from string) []string
	TransitiveReduction(ctx context.Context)
	TopologicalLevels(ctx context.Context) ([][]string, error)
	Print(w io.Writer, name string)
}

// Edge is a dependency: To depends on From.
type Edge struct {
	From string
	To   string
}

// adjacency maps a vertex to its neighbours in one direction
type adjacency map[string]map[string]struct{}

func (r adjacency) add(from, to string) {
	if _, ok := r[from]; !ok {
		r[from] = map[string]struct{}{}
	}
	r[from][to] = struct{}{}
}

func (r adjacency) remove(from, to string) {
	delete(r[from], to)
}

func (r adjacency) sorted(from string) []string {
	out := make([]string, 0, len(r[from]))
	for to := range r[from] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

type dag[T1 any] struct {
	m        sync.RWMutex
	vertices map[string]T1
	down     adjacency
	up       adjacency
}

func New[T1 any]() DAG[T1] {
	return &dag[T1]{
		vertices: map[string]T1{},
		down:     adjacency{},
		up:       adjacency{},
	}
}

func (r *dag[T1]) AddVertex(ctx context.Context, s string, v T1) error {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.vertices[s]; ok {
		return fmt.Errorf("duplicate vertex entry: %s", s)
	}
	r.vertices[s] = v
	return nil
}

func (r *dag[T1]) GetVertices() map[string]T1 {
	r.m.RLock()
	defer r.m.RUnlock()
	vertices := make(map[string]T1, len(r.vertices))
	for name, v := range r.vertices {
		vertices[name] = v
	}
	return vertices
}

func (r *dag[T1]) VertexExists(s string) bool {
	r.m.RLock()
	defer r.m.RUnlock()
	_, ok := r.vertices[s]
	return ok
}

func (r *dag[T1]) GetVertex(s string) (T1, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	v, ok := r.vertices[s]
	if !ok {
		return *new(T1), fmt.Errorf("%s, name: %s", NotFound, s)
	}
	return v, nil
}

func (r *dag[T1]) Connect(ctx context.Context, from, to string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.down.add(from, to)
	r.up.add(to, from)
}

func (r *dag[T1]) Disconnect(ctx context.Context, from, to string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.down.remove(from, to)
	r.up.remove(to, from)
}

// GetDownVertexes returns the vertices depending on from, sorted by name.
func (r *dag[T1]) GetDownVertexes(from string) []string {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.down.sorted(from)
}

// GetUpVertexes returns the vertices from depends on, sorted by name.
func (r *dag[T1]) GetUpVertexes(from string) []string {
	r.m.RLock()
	defer r.m.RUnlock()
	return r.up.sorted(from)
}

// Print writes the vertices with their up and down vertices, followed by the
// dependency map starting at the root vertex.
func (r *dag[T1]) Print(w io.Writer, name string) {
	vertices := r.GetVertices()
	names := make([]string, 0, len(vertices))
	for vertexName := range vertices {
		names = append(names, vertexName)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "###### DAG %s start #######\n", name)
	for _, vertexName := range names {
		fmt.Fprintf(w, "vertexname: %s upVertices: %v, downVertices: %v\n", vertexName, r.GetUpVertexes(vertexName), r.GetDownVertexes(vertexName))
	}
	fmt.Fprintf(w, "###### DAG %s stop #######\n", name)
	fmt.Fprintf(w, "######### DAG %s dependency map start ###########\n", name)
	r.printDependencyMap(w, Root, map[string]struct{}{Root: {}})
	fmt.Fprintf(w, "######### DAG %s dependency map end   ###########\n", name)
}

func (r *dag[T1]) printDependencyMap(w io.Writer, from string, visited map[string]struct{}) {
	fmt.Fprintf(w, "%s:\n", from)
	for _, upVertex := range r.GetUpVertexes(from) {
		fmt.Fprintf(w, "-> %s\n", upVertex)
	}
	for _, downVertex := range r.GetDownVertexes(from) {
		if _, ok := visited[downVertex]; ok {
			continue
		}
		visited[downVertex] = struct{}{}
		r.printDependencyMap(w, downVertex, visited)
	}
}
