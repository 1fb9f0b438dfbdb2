// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package loader drives the FST decoder adapter's hierarchy iterator
// to build a hierarchy.Tree, selects a subtree by scope name, and
// emits the flattened variable list into a waveform.Capture.
package loader

import (
	"fmt"

	"github.com/sta-tools/fst-activity/internal/fstapi"
	"github.com/sta-tools/fst-activity/internal/hierarchy"
	"github.com/sta-tools/fst-activity/internal/waveform"
	"github.com/sta-tools/fst-activity/pkg/log"
)

// ScopeNotFoundError is returned when the requested scope name never
// appeared in the hierarchy stream (stable code 7782).
type ScopeNotFoundError struct {
	Scope string
}

func (e *ScopeNotFoundError) Error() string {
	return fmt.Sprintf("fstapi[7782]: scope %q not found", e.Scope)
}

// Load reads header metadata and drives the hierarchy walk over a,
// selecting the subtree rooted at the first scope named scope (or the
// very first scope seen, if scope is ""), and populates capture with
// the flattened variable list for that subtree.
func Load(a fstapi.Decoder, scope string, capture *waveform.Capture) error {
	header, err := a.Header()
	if err != nil {
		return err
	}
	capture.SetHeader(header)

	tree := hierarchy.New()
	var anchor hierarchy.ID
	foundAnchor := false

	err = a.IterateHierarchy(func(ev fstapi.HierEvent) error {
		switch ev.Kind {
		case fstapi.ScopeBegin:
			id, perr := tree.Push(hierarchy.Scope{
				Type:      ev.ScopeType,
				Name:      ev.ScopeName,
				Component: ev.ScopeComponent,
			})
			if perr != nil {
				return perr
			}
			if !foundAnchor && (scope == "" || scope == ev.ScopeName) {
				anchor = id
				foundAnchor = true
			}
			return nil
		case fstapi.ScopeEnd:
			tree.Pop()
			return nil
		case fstapi.VarDecl:
			if tree.Empty() {
				return fmt.Errorf("fstapi[7779]: var %q declared with no enclosing scope", ev.VarName)
			}
			current, cerr := tree.PeekCurrent()
			if cerr != nil {
				return cerr
			}
			current.Variables = append(current.Variables, hierarchy.Variable{
				Type:      ev.VarType,
				Name:      tree.CurrentContext() + ev.VarName,
				BitLength: ev.VarLength,
				Handle:    uint32(ev.VarHandle),
				IsAlias:   ev.VarIsAlias,
			})
			return nil
		default: // AttrBegin, AttrEnd, unknown
			return nil
		}
	})
	if err != nil {
		return err
	}
	if !foundAnchor {
		return &ScopeNotFoundError{Scope: scope}
	}

	scopes := append([]hierarchy.Scope{tree.Get(anchor)}, tree.AllChildren(anchor)...)
	log.Debugf("loader: scope %q resolved to %d scopes (incl. descendants)", scope, len(scopes))

	var flat []waveform.Variable
	for _, sc := range scopes {
		for _, v := range sc.Variables {
			flat = append(flat, waveform.Variable{
				Type:      v.Type,
				Name:      v.Name,
				BitLength: v.BitLength,
				Handle:    fstapi.Handle(v.Handle),
				IsAlias:   v.IsAlias,
			})
		}
	}
	capture.SetVariables(flat)
	log.Infof("loader: accumulated %d variables under scope %q", len(flat), scope)
	return nil
}
