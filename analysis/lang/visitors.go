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

// A StmtOp must implement methods for ALL possible statement kinds.
type StmtOp interface {
	DoStore(*Store)
	DoAssign(*Assign)
	DoDiscard(*Discard)
	DoReturn(*Return)
	DoBreak(*Break)
	DoContinue(*Continue)
	DoYield(*Yield)
	DoSuite(*Suite)
	DoSwitch(*Switch)
	DoTypeSwitch(*TypeSwitch)
	DoWhile(*While)
	DoFor(*For)
}

// StmtSwitch maps each statement kind to the corresponding method of the
// visitor. An unknown kind is a front-end defect and panics.
func StmtSwitch(visitor StmtOp, stmt Stmt) {
	switch stmt := stmt.(type) {
	case *Store:
		visitor.DoStore(stmt)
	case *Assign:
		visitor.DoAssign(stmt)
	case *Discard:
		visitor.DoDiscard(stmt)
	case *Return:
		visitor.DoReturn(stmt)
	case *Break:
		visitor.DoBreak(stmt)
	case *Continue:
		visitor.DoContinue(stmt)
	case *Yield:
		visitor.DoYield(stmt)
	case *Suite:
		visitor.DoSuite(stmt)
	case *Switch:
		visitor.DoSwitch(stmt)
	case *TypeSwitch:
		visitor.DoTypeSwitch(stmt)
	case *While:
		visitor.DoWhile(stmt)
	case *For:
		visitor.DoFor(stmt)
	default:
		panic(stmt)
	}
}

// An ExprOp must implement methods for ALL possible expression kinds.
type ExprOp interface {
	DoLocal(*Local)
	DoExisting(*Existing)
	DoBinOp(*BinOp)
	DoLoad(*Load)
}

// ExprSwitch maps each expression kind to the corresponding method of the
// visitor. An unknown kind is a front-end defect and panics.
func ExprSwitch(visitor ExprOp, expr Expr) {
	switch expr := expr.(type) {
	case *Local:
		visitor.DoLocal(expr)
	case *Existing:
		visitor.DoExisting(expr)
	case *BinOp:
		visitor.DoBinOp(expr)
	case *Load:
		visitor.DoLoad(expr)
	default:
		panic(expr)
	}
}
