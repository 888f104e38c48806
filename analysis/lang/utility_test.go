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

package lang

import "testing"

func TestFmtStmt(t *testing.T) {
	x := &Local{Name: "x"}
	one := &Existing{Object: &Object{Name: "one", Truthy: true}}

	cases := []struct {
		name string
		stmt Stmt
		want string
	}{
		{"assign", &Assign{Expr: one, Targets: []*Local{x}}, "x = !one"},
		{"discard", &Discard{Expr: x}, "discard x"},
		{"return", &Return{Value: &BinOp{Left: x, Op: "+", Right: one}}, "return (x + !one)"},
		{"bare return", &Return{}, "return"},
		{"yield", &Yield{Value: x}, "yield x"},
	}
	for _, c := range cases {
		if got := FmtStmt(c.stmt); got != c.want {
			t.Errorf("%s: FmtStmt = %q, want %q", c.name, got, c.want)
		}
	}
}
