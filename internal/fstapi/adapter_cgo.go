// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fstapi

/*
#cgo CFLAGS: -I${SRCDIR}/cfst
#cgo LDFLAGS: -lfst -lz
#include <stdlib.h>
#include "fstapi.h"

extern void goValueChangeCallback(void *user, uint64_t time, fstHandle facidx, const unsigned char *value);
*/
import "C"

import (
	"sync"
	"unsafe"
)

// Adapter owns one decoder context for the lifetime of one run. It
// guarantees the context is released on every exit path: open failure,
// iteration error, or normal completion.
type Adapter struct {
	ctx unsafe.Pointer
}

// Open acquires a decoder context for path. The context is released by
// Close; callers should defer Close immediately after a successful Open
// (scoped acquisition).
func Open(path string) (*Adapter, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ctx := C.fstReaderOpen(cPath)
	if ctx == nil {
		return nil, newError(CodeOpenFailed, "failed to open fst context with file %s", path)
	}
	return &Adapter{ctx: unsafe.Pointer(ctx)}, nil
}

// Close releases the decoder context. Safe to call multiple times and
// safe to defer unconditionally.
func (a *Adapter) Close() error {
	if a.ctx == nil {
		return nil
	}
	C.fstReaderClose(a.ctx)
	a.ctx = nil
	return nil
}

func (a *Adapter) cctx() *C.void {
	return (*C.void)(a.ctx)
}

// Header reads the capture's scalar header metadata and decodes its
// timescale.
func (a *Adapter) Header() (Header, error) {
	if a.ctx == nil {
		return Header{}, errNotOpen
	}
	h := Header{
		StartTime: uint64(C.fstReaderGetStartTime(a.cctx())),
		EndTime:   uint64(C.fstReaderGetEndTime(a.cctx())),
		Timescale: int8(C.fstReaderGetTimescale(a.cctx())),
		Version:   C.GoString(C.fstReaderGetVersionString(a.cctx())),
		Date:      C.GoString(C.fstReaderGetDateString(a.cctx())),
		VarCount:  uint64(C.fstReaderGetVarCount(a.cctx())),
	}
	unit, unitScale, timeScale, err := decodeTimescale(h.Timescale)
	if err != nil {
		return Header{}, err
	}
	h.TimeUnit = unit
	h.UnitScale = unitScale
	h.TimeScale = timeScale
	return h, nil
}

// IterateHierarchy drives the decoder's hierarchy iterator and invokes
// visit once per record, in the order the decoder yields them
// (depth-first, required for Scope tree contiguity).
func (a *Adapter) IterateHierarchy(visit func(HierEvent) error) error {
	if a.ctx == nil {
		return errNotOpen
	}
	for {
		h := C.fstReaderIterateHier(a.cctx())
		if h == nil {
			return nil
		}
		var ev HierEvent
		switch h.htyp {
		case C.FST_HT_SCOPE:
			scope := (*C.struct_fstHierScope)(unsafe.Pointer(&h.u[0]))
			ev = HierEvent{
				Kind:           ScopeBegin,
				ScopeType:      uint8(scope.typ),
				ScopeName:      C.GoString(scope.name),
				ScopeComponent: C.GoString(scope.component),
			}
		case C.FST_HT_UPSCOPE:
			ev = HierEvent{Kind: ScopeEnd}
		case C.FST_HT_VAR:
			v := (*C.struct_fstHierVar)(unsafe.Pointer(&h.u[0]))
			ev = HierEvent{
				Kind:       VarDecl,
				VarType:    uint8(v.typ),
				VarName:    C.GoString(v.name),
				VarLength:  uint32(v.length),
				VarHandle:  Handle(v.handle),
				VarIsAlias: v.is_alias != 0,
			}
		case C.FST_HT_ATTRBEGIN:
			ev = HierEvent{Kind: AttrBegin}
		case C.FST_HT_ATTREND:
			ev = HierEvent{Kind: AttrEnd}
		default:
			continue
		}
		if err := visit(ev); err != nil {
			return err
		}
	}
}

// callbackRegistry lets the C callback trampoline dispatch back into a
// Go closure without passing a Go pointer through cgo.
var callbackRegistry struct {
	mu   sync.Mutex
	next uintptr
	fns  map[uintptr]ValueChangeFunc
}

func init() {
	callbackRegistry.fns = make(map[uintptr]ValueChangeFunc)
}

func registerCallback(fn ValueChangeFunc) uintptr {
	callbackRegistry.mu.Lock()
	defer callbackRegistry.mu.Unlock()
	callbackRegistry.next++
	id := callbackRegistry.next
	callbackRegistry.fns[id] = fn
	return id
}

func unregisterCallback(id uintptr) {
	callbackRegistry.mu.Lock()
	defer callbackRegistry.mu.Unlock()
	delete(callbackRegistry.fns, id)
}

//export goValueChangeCallback
func goValueChangeCallback(user unsafe.Pointer, t C.uint64_t, facidx C.fstHandle, value *C.uchar) {
	id := uintptr(user)
	callbackRegistry.mu.Lock()
	fn, ok := callbackRegistry.fns[id]
	callbackRegistry.mu.Unlock()
	if !ok {
		return
	}
	raw := []byte(C.GoString((*C.char)(unsafe.Pointer(value))))
	fn(uint64(t), Handle(facidx), raw)
}

// IterateValueChanges marks every handle in handles selected, runs one
// decoder pass over the whole file, and invokes cb once per recorded
// transition of any selected variable, globally non-decreasing in
// time. Selection is cleared before returning, on both success and
// failure — this package never leaves facs marked across calls.
func (a *Adapter) IterateValueChanges(handles []Handle, cb ValueChangeFunc) error {
	if a.ctx == nil {
		return errNotOpen
	}
	for _, h := range handles {
		C.fstReaderSetFacProcessMask(a.cctx(), C.fstHandle(h))
	}
	defer func() {
		for _, h := range handles {
			C.fstReaderClrFacProcessMask(a.cctx(), C.fstHandle(h))
		}
	}()

	id := registerCallback(cb)
	defer unregisterCallback(id)

	C.fstReaderIterBlocks(a.cctx(),
		C.fstValueChangeCallback(C.goValueChangeCallback),
		unsafe.Pointer(id), nil)
	return nil
}
