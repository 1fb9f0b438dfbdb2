// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample constructs root/(A/(x,y), B/(z)) — the scope-only
// skeleton used by S4 in the scenario list, plus S1's descendant-count
// invariant.
func buildSample(t *testing.T) (*Tree, ID, ID, ID) {
	t.Helper()
	tr := New()
	rootID, err := tr.Push(Scope{Name: "root"})
	require.NoError(t, err)

	aID, err := tr.Push(Scope{Name: "A"})
	require.NoError(t, err)
	tr.Pop()

	bID, err := tr.Push(Scope{Name: "B"})
	require.NoError(t, err)
	tr.Pop()

	tr.Pop() // close root
	return tr, rootID, aID, bID
}

func TestContiguousDescendants(t *testing.T) {
	tr, rootID, _, _ := buildSample(t)
	children := tr.AllChildren(rootID)
	require.Len(t, children, 2)
	assert.Equal(t, "A", children[0].Name)
	assert.Equal(t, "B", children[1].Name)
}

func TestMultiRootRejected(t *testing.T) {
	tr := New()
	_, err := tr.Push(Scope{Name: "root1"})
	require.NoError(t, err)
	tr.Pop()

	_, err = tr.Push(Scope{Name: "root2"})
	require.Error(t, err)
	var mrErr *MultiRootError
	require.ErrorAs(t, err, &mrErr)
}

func TestPopToleratesTrailingEndScope(t *testing.T) {
	tr := New()
	tr.Pop() // no-op on empty stack
	_, err := tr.Push(Scope{Name: "root"})
	require.NoError(t, err)
}

func TestCurrentContextTrailingSlash(t *testing.T) {
	tr := New()
	_, _ = tr.Push(Scope{Name: "top"})
	_, _ = tr.Push(Scope{Name: "inner"})
	assert.Equal(t, "top/inner/", tr.CurrentContext())
}

func TestNChildrenCountsTransitiveDescendants(t *testing.T) {
	// root/(mid/(leaf)) — nChildren on root must be 2, not 1, because
	// it counts all transitive descendants, not just immediate children.
	tr := New()
	rootID, _ := tr.Push(Scope{Name: "root"})
	_, _ = tr.Push(Scope{Name: "mid"})
	_, _ = tr.Push(Scope{Name: "leaf"})
	tr.Pop()
	tr.Pop()
	tr.Pop()

	assert.Len(t, tr.AllChildren(rootID), 2)
}
