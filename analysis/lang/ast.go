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

// Package lang defines the abstract syntax vocabulary of the analyzed language,
// the annotation objects supplied by the whole-program analysis, and exhaustive
// visitors over statement and expression kinds.
//
// The parser front end is a separate component; it must produce exactly the
// node kinds declared here. All node identity is pointer identity: two locals
// are the same variable iff they are the same *Local.
package lang

// A Node is any AST node.
type Node interface {
	isNode()
}

// A Stmt is a statement node. The set of statement kinds is closed; passes
// dispatch on the concrete type and panic on anything else.
type Stmt interface {
	Node
	isStmt()
}

// An Expr is an expression node.
type Expr interface {
	Node
	isExpr()
}

// An Object is a canonical constant object. Objects are interned by the front
// end: the same program constant is always represented by the same *Object, so
// pointer comparison is object identity.
type Object struct {
	Name string

	// Truthy is the object's boolean interpretation, used when folding
	// branches on constant conditions.
	Truthy bool
}

func (o *Object) String() string { return o.Name }

// A Local is a version of a local variable. The CFG builder and the SSA pass
// create fresh *Local values for each variable version.
type Local struct {
	Name string
}

// Clone returns a fresh local with the same name but a new identity.
// Used to materialize temporaries during phi serialization.
func (l *Local) Clone() *Local { return &Local{Name: l.Name} }

func (l *Local) String() string { return l.Name }

// An Existing references a canonical constant object.
type Existing struct {
	Object *Object
}

// A BinOp is a primitive binary operation.
type BinOp struct {
	Left  Expr
	Op    string
	Right Expr
}

// A Load reads a field from an object. Expr is the object, Name the field
// name value. The annotation carries the abstract fields the load may observe.
type Load struct {
	Expr       Expr
	FieldKind  FieldKind
	Name       Expr
	Annotation *Annotation
}

// A Store writes a field of an object. The annotation carries the abstract
// fields the store may modify.
type Store struct {
	Expr       Expr
	FieldKind  FieldKind
	Name       Expr
	Value      Expr
	Annotation *Annotation
}

// An Assign evaluates Expr and binds the result to each target.
type Assign struct {
	Expr    Expr
	Targets []*Local
}

// A Discard evaluates Expr for effect only.
type Discard struct {
	Expr Expr
}

// A Return transfers control to the procedure's return handler.
type Return struct {
	Value Expr
}

// A Break transfers control to the innermost loop's break target.
type Break struct{}

// A Continue transfers control to the innermost loop's continue target.
type Continue struct{}

// A Yield suspends the procedure, producing Value. The CFG represents it as a
// dedicated pass-through node; it is the only suspension point in the model.
type Yield struct {
	Value Expr
}

// A Suite is a straight-line statement list.
type Suite struct {
	Ops []Stmt
}

// A Condition is a boolean test with a preamble evaluated before the
// conditional expression.
type Condition struct {
	Preamble    *Suite
	Conditional Expr
}

// A Switch is a two-way branch.
type Switch struct {
	Condition *Condition
	T         *Suite
	F         *Suite
}

// A TypeSwitchCase binds the scrutinized value to Binding when its type is in
// Types, then runs Body.
type TypeSwitchCase struct {
	Types   []*Object
	Binding *Local
	Body    *Suite
}

// A TypeSwitch dispatches over the runtime type of Conditional.
type TypeSwitch struct {
	Conditional Expr
	Cases       []*TypeSwitchCase
}

// A While loop. Else runs when the condition fails without a break.
type While struct {
	Condition *Condition
	Body      *Suite
	Else      *Suite
}

// A For loop over an iterator. The preambles are produced by the front end's
// desugaring: LoopPreamble sets up the iterator, BodyPreamble advances it and
// binds Index.
type For struct {
	Iterator     Expr
	Index        *Local
	LoopPreamble *Suite
	BodyPreamble *Suite
	Body         *Suite
	Else         *Suite
}

// A Code is one procedure: the unit the pipeline processes.
type Code struct {
	Name       string
	Parameters []*Local
	Body       *Suite
}

func (*Local) isNode()          {}
func (*Existing) isNode()       {}
func (*BinOp) isNode()          {}
func (*Load) isNode()           {}
func (*Store) isNode()          {}
func (*Assign) isNode()         {}
func (*Discard) isNode()        {}
func (*Return) isNode()         {}
func (*Break) isNode()          {}
func (*Continue) isNode()       {}
func (*Yield) isNode()          {}
func (*Suite) isNode()          {}
func (*Condition) isNode()      {}
func (*Switch) isNode()         {}
func (*TypeSwitchCase) isNode() {}
func (*TypeSwitch) isNode()     {}
func (*While) isNode()          {}
func (*For) isNode()            {}
func (*Code) isNode()           {}

func (*Local) isExpr()    {}
func (*Existing) isExpr() {}
func (*BinOp) isExpr()    {}
func (*Load) isExpr()     {}

func (*Store) isStmt()      {}
func (*Assign) isStmt()     {}
func (*Discard) isStmt()    {}
func (*Return) isStmt()     {}
func (*Break) isStmt()      {}
func (*Continue) isStmt()   {}
func (*Yield) isStmt()      {}
func (*Suite) isStmt()      {}
func (*Switch) isStmt()     {}
func (*TypeSwitch) isStmt() {}
func (*While) isStmt()      {}
func (*For) isStmt()        {}
