// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"errors"
	"testing"

	"github.com/awslabs/dynflow/analysis/lang"
)

// diamond builds entry -> switch -> two one-op suites -> merge -> exit suite,
// returning the code, the arm suites and the merge. Phi entries are added by
// the caller before expansion.
func diamond(t *testing.T) (*Code, *Suite, *Suite, *Merge) {
	t.Helper()

	code := NewCode(&lang.Code{Name: "diamond"})

	sw := NewSwitch(local("c"))
	code.EntryTerminal.SetExit(EdgeEntry, sw)

	s1, s2 := NewSuite(), NewSuite()
	s1.Ops = []lang.Stmt{&lang.Discard{Expr: constant("left", true)}}
	s2.Ops = []lang.Stmt{&lang.Discard{Expr: constant("right", true)}}
	sw.SetExit(EdgeTrue, s1)
	sw.SetExit(EdgeFalse, s2)

	m := NewMerge()
	s1.SetExit(EdgeNormal, m)
	s2.SetExit(EdgeNormal, m)

	exit := NewSuite()
	m.SetExit(EdgeNormal, exit)
	exit.SetExit(EdgeNormal, code.NormalTerminal)

	return code, s1, s2, m
}

func TestExpandPhiDiamond(t *testing.T) {
	code, s1, s2, m := diamond(t)

	x := local("x")
	a, b := constant("a", true), constant("b", true)
	m.Phi = []*Phi{{Arguments: []lang.Expr{a, b}, Target: x}}

	if err := ExpandPhi(code); err != nil {
		t.Fatal(err)
	}
	if len(m.Phi) != 0 {
		t.Fatalf("phi entries survived expansion")
	}

	for _, tc := range []struct {
		arm *Suite
		src *lang.Existing
	}{
		{s1, a},
		{s2, b},
	} {
		spliced, ok := tc.arm.Exit(EdgeNormal).(*Suite)
		if !ok {
			t.Fatalf("no suite spliced after %s", tc.arm)
		}
		if spliced.Exit(EdgeNormal) != Block(m) {
			t.Errorf("spliced suite does not reach the merge")
		}
		if len(spliced.Ops) != 1 {
			t.Fatalf("spliced suite has %d ops, want 1", len(spliced.Ops))
		}
		as := spliced.Ops[0].(*lang.Assign)
		if as.Expr != lang.Expr(tc.src) || as.Targets[0] != x {
			t.Errorf("spliced %s, want %s = %s",
				lang.FmtStmt(as), x.Name, tc.src.Object.Name)
		}
	}

	for block := range reachable(code) {
		block.SanityCheck()
	}
}

func TestExpandPhiSkipsAbsentArguments(t *testing.T) {
	code, s1, s2, m := diamond(t)

	x := local("x")
	m.Phi = []*Phi{{Arguments: []lang.Expr{constant("a", true), nil}, Target: x}}

	if err := ExpandPhi(code); err != nil {
		t.Fatal(err)
	}

	if _, ok := s1.Exit(EdgeNormal).(*Suite); !ok {
		t.Errorf("edge with a phi argument got no spliced suite")
	}
	if s2.Exit(EdgeNormal) != Block(m) {
		t.Errorf("edge without phi arguments must stay untouched")
	}
}

func TestExpandPhiSwapUsesTemporary(t *testing.T) {
	code, s1, _, m := diamond(t)

	x, y := local("x"), local("y")
	m.Phi = []*Phi{
		{Arguments: []lang.Expr{y, nil}, Target: x},
		{Arguments: []lang.Expr{x, nil}, Target: y},
	}

	if err := ExpandPhi(code); err != nil {
		t.Fatal(err)
	}

	spliced := s1.Exit(EdgeNormal).(*Suite)
	if len(spliced.Ops) != 3 {
		t.Fatalf("a swap serializes into 3 assignments, got %d", len(spliced.Ops))
	}
	first := spliced.Ops[0].(*lang.Assign)
	if first.Targets[0] == x || first.Targets[0] == y {
		t.Errorf("first assignment must save into a temporary, got %s", lang.FmtStmt(first))
	}
}

func TestExpandPhiEntryEdge(t *testing.T) {
	code := NewCode(&lang.Code{Name: "entryphi"})

	m := NewMerge()
	code.EntryTerminal.SetExit(EdgeEntry, m)
	exit := NewSuite()
	m.SetExit(EdgeNormal, exit)
	exit.SetExit(EdgeNormal, code.NormalTerminal)

	x := local("x")
	m.Phi = []*Phi{{Arguments: []lang.Expr{constant("init", true)}, Target: x}}

	if err := ExpandPhi(code); err != nil {
		t.Fatalf("entry edges must support phi transfers: %v", err)
	}
	if _, ok := code.EntryTerminal.Exit(EdgeEntry).(*Suite); !ok {
		t.Errorf("no suite spliced on the entry edge")
	}
}

func TestExpandPhiRejectsFailEdge(t *testing.T) {
	code := NewCode(&lang.Code{Name: "failphi"})

	s := NewSuite()
	s.Ops = []lang.Stmt{&lang.Discard{Expr: &lang.Load{
		Expr:      local("o"),
		FieldKind: lang.AttributeField,
		Name:      constant("attr", true),
	}}}
	code.EntryTerminal.SetExit(EdgeEntry, s)
	s.SetExit(EdgeNormal, code.NormalTerminal)

	m := NewMerge()
	s.SetExit(EdgeFail, m)
	failExit := NewSuite()
	m.SetExit(EdgeNormal, failExit)
	failExit.SetExit(EdgeNormal, code.FailTerminal)

	x := local("x")
	m.Phi = []*Phi{{Arguments: []lang.Expr{constant("a", true)}, Target: x}}

	err := ExpandPhi(code)
	var uee *UnsupportedEdgeError
	if !errors.As(err, &uee) {
		t.Fatalf("got %v, want an unsupported-edge error", err)
	}
	if uee.Edge != EdgeFail {
		t.Errorf("error names edge %q, want %q", uee.Edge, EdgeFail)
	}
}
