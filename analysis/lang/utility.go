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

import (
	"fmt"
	"strings"
)

// FmtExpr returns a compact one-line rendering of an expression, for
// diagnostics and test failure messages.
func FmtExpr(expr Expr) string {
	switch expr := expr.(type) {
	case *Local:
		return expr.Name
	case *Existing:
		return "!" + expr.Object.Name
	case *BinOp:
		return fmt.Sprintf("(%s %s %s)", FmtExpr(expr.Left), expr.Op, FmtExpr(expr.Right))
	case *Load:
		return fmt.Sprintf("%s.%s[%s]", FmtExpr(expr.Expr), expr.FieldKind, FmtExpr(expr.Name))
	default:
		panic(expr)
	}
}

// FmtStmt returns a compact one-line rendering of a statement.
func FmtStmt(stmt Stmt) string {
	switch stmt := stmt.(type) {
	case *Store:
		return fmt.Sprintf("%s.%s[%s] = %s",
			FmtExpr(stmt.Expr), stmt.FieldKind, FmtExpr(stmt.Name), FmtExpr(stmt.Value))
	case *Assign:
		targets := make([]string, len(stmt.Targets))
		for i, t := range stmt.Targets {
			targets[i] = t.Name
		}
		return fmt.Sprintf("%s = %s", strings.Join(targets, ", "), FmtExpr(stmt.Expr))
	case *Discard:
		return "discard " + FmtExpr(stmt.Expr)
	case *Return:
		if stmt.Value == nil {
			return "return"
		}
		return "return " + FmtExpr(stmt.Value)
	case *Break:
		return "break"
	case *Continue:
		return "continue"
	case *Yield:
		return "yield " + FmtExpr(stmt.Value)
	case *Suite:
		return fmt.Sprintf("suite(%d ops)", len(stmt.Ops))
	case *Switch:
		return "switch " + FmtExpr(stmt.Condition.Conditional)
	case *TypeSwitch:
		return fmt.Sprintf("typeswitch %s (%d cases)", FmtExpr(stmt.Conditional), len(stmt.Cases))
	case *While:
		return "while " + FmtExpr(stmt.Condition.Conditional)
	case *For:
		return "for " + FmtExpr(stmt.Iterator)
	default:
		panic(stmt)
	}
}
