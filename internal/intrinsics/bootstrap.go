// Package intrinsics builds the initial class lattice, registers every
// primitive method, and produces the intrinsics environment every other
// environment in a running interpreter chains from. Bootstrap order is
// load-bearing (see Bootstrap's doc comment): classes and metaclasses
// must all exist before superclasses are linked, which must happen
// before metaclass class-pointers are set, which must happen before any
// primitive method registration touches a method dictionary.
package intrinsics

import (
	"github.com/sysmel/bootstrap/internal/environment"
	"github.com/sysmel/bootstrap/internal/object"
)

// Registry holds every intrinsic class by name, so later bootstrap steps
// (superclass linking, primitive registration) can find classes declared
// earlier without threading dozens of individual variables around.
type Registry struct {
	Classes map[string]*object.Class
	Env     *environment.Environment
}

// classSpec is one declarative row of the bootstrap class table: name,
// superclass name (empty for the root), and instance format (kept for
// parity with the reference design's per-class "format" slot; this
// implementation does not need it to size anything, since Go values are
// never laid out by hand, but primitives keyed on Format still use it to
// tell fixed-width numeric classes apart cheaply).
type classSpec struct {
	name       string
	superclass string
}

// bootstrapTable is the full declarative class list: every class the
// core language names anywhere in its primitive table or type surface.
// Ordering within the table does not matter; Bootstrap resolves
// superclass links in a second pass over the whole map.
var bootstrapTable = []classSpec{
	{"ProtoObject", ""},
	{"Object", "ProtoObject"},
	{"Behavior", "Object"},
	{"ClassDescription", "Behavior"},
	{"Class", "ClassDescription"},
	{"Metaclass", "ClassDescription"},
	{"UndefinedObject", "Object"},
	{"Boolean", "Object"},
	{"Magnitude", "Object"},
	{"Collection", "Object"},
	{"SequenceableCollection", "Collection"},
	{"ArrayedCollection", "SequenceableCollection"},
	{"Array", "ArrayedCollection"},
	{"ByteArray", "ArrayedCollection"},
	{"Tuple", "ArrayedCollection"},
	{"String", "ArrayedCollection"},
	{"Symbol", "String"},
	{"Association", "Object"},
	{"Dictionary", "Collection"},
	{"Number", "Magnitude"},
	{"Integer", "Number"},
	{"Float", "Number"},
	{"Character", "Magnitude"},
	{"CompiledMethod", "Object"},
	{"BlockClosure", "Object"},
	{"Stdio", "Object"},

	{"UInt8", "Integer"}, {"UInt16", "Integer"}, {"UInt32", "Integer"}, {"UInt64", "Integer"},
	{"Int8", "Integer"}, {"Int16", "Integer"}, {"Int32", "Integer"}, {"Int64", "Integer"},
	{"Char8", "Character"}, {"Char16", "Character"}, {"Char32", "Character"},
	{"Float32", "Float"}, {"Float64", "Float"},
}

// Bootstrap executes the six-step order documented on this package:
//  1. create every (Class, Metaclass) pair from bootstrapTable;
//  2. link superclasses;
//  3. set every metaclass's class pointer to the Metaclass class;
//  4. registerInSuperclass for each class;
//  5. short-circuit ProtoObject's and Metaclass(ProtoObject)'s superclasses;
//  6. bind names (classes, nil/true/false/void, type singletons) in the
//     returned intrinsics environment.
//
// Primitive method registration (registerPrimitives, in primitives.go)
// runs after this returns, since it needs every class to already exist
// and be linked.
func Bootstrap() *Registry {
	reg := &Registry{
		Classes: make(map[string]*object.Class),
		Env:     environment.NewChild(environment.NewEmpty(), environment.KindIntrinsics, "intrinsics"),
	}

	// Step 1: create pairs.
	for _, spec := range bootstrapTable {
		cls := object.NewClass(spec.name)
		meta := object.NewMetaclass(spec.name)
		meta.ClassPointer = cls
		cls.Meta = meta
		reg.Classes[spec.name] = cls
	}

	// Step 2: link superclasses (both the class chain and, by bootstrap
	// convention, the parallel metaclass chain via Metaclass.Superclass
	// reusing Behavior.Superclass to mean "superclass's class", which
	// Metaclass.LookupSelector dereferences through .Meta).
	for _, spec := range bootstrapTable {
		if spec.superclass == "" {
			continue
		}
		cls := reg.Classes[spec.name]
		super := reg.Classes[spec.superclass]
		cls.Superclass = super
		cls.Meta.Superclass = super
	}

	// Step 3: every metaclass's own class is the Metaclass class.
	metaclassClass := reg.Classes["Metaclass"]
	for _, spec := range bootstrapTable {
		reg.Classes[spec.name].Meta.MetaMeta = metaclassClass
	}

	// Step 4: registerInSuperclass.
	for _, spec := range bootstrapTable {
		reg.Classes[spec.name].RegisterInSuperclass()
	}

	// Step 5: short-circuit ProtoObject and Metaclass(ProtoObject).
	undefinedObject := reg.Classes["UndefinedObject"]
	classClass := reg.Classes["Class"]
	protoObject := reg.Classes["ProtoObject"]
	protoObject.Superclass = undefinedObject
	protoObject.Meta.Superclass = classClass

	// Step 6: bind names in the intrinsics environment.
	for name, cls := range reg.Classes {
		reg.Env.Define(object.InternString(name), &environment.ValueBinding{Val: cls})
	}
	object.SetDefaultSymbolClass(reg.Classes["Symbol"])
	object.Nil.SetClass(undefinedObject)
	object.TrueValue.SetClass(reg.Classes["Boolean"])
	object.FalseValue.SetClass(reg.Classes["Boolean"])
	object.SetDefaultClasses(
		reg.Classes["Integer"],
		reg.Classes["Float"],
		reg.Classes["Character"],
		reg.Classes["String"],
		reg.Classes["Array"],
		reg.Classes["ByteArray"],
		reg.Classes["Tuple"],
		reg.Classes["Association"],
	)

	reg.Env.Define(object.InternString("nil"), &environment.ValueBinding{Val: object.Nil})
	reg.Env.Define(object.InternString("true"), &environment.ValueBinding{Val: object.TrueValue})
	reg.Env.Define(object.InternString("false"), &environment.ValueBinding{Val: object.FalseValue})

	registerPrimitives(reg)
	return reg
}
