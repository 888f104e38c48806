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

// FieldKind classifies the abstract memory locations of the analyzed language.
type FieldKind int

const (
	// AttributeField is an object attribute slot.
	AttributeField FieldKind = iota

	// ArrayField is an array element slot.
	ArrayField

	// DictionaryField is a dictionary item slot.
	DictionaryField

	// LowLevelField is an internal slot introduced by desugaring.
	LowLevelField
)

func (k FieldKind) String() string {
	switch k {
	case AttributeField:
		return "Attribute"
	case ArrayField:
		return "Array"
	case DictionaryField:
		return "Dictionary"
	case LowLevelField:
		return "LowLevel"
	default:
		panic(k)
	}
}

// A Field is an abstract memory location named by the points-to analysis.
// Fields are interned: pointer comparison is location identity.
type Field struct {
	Kind FieldKind
	Name string
}

func (f *Field) String() string { return f.Kind.String() + "." + f.Name }

// An Annotation is the per-operation result of the whole-program points-to and
// type analysis. The optimizer treats annotations as read-only oracle input;
// the only mutation it performs is dropping entries it has proven dead.
type Annotation struct {
	// Reads is the set of abstract fields the operation may observe.
	Reads []*Field

	// Modifies is the set of abstract fields the operation may mutate.
	Modifies []*Field

	// Allocates is the set of abstract fields the operation may create.
	Allocates []*Field

	// Unique reports that the operation's result is not aliased on entry.
	Unique bool

	// Preexisting reports that the operation's result existed before the
	// procedure was entered.
	Preexisting bool
}
