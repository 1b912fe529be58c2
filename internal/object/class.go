package object

// Method is either a primitive (a Go closure over already-evaluated
// arguments, argument 0 being the receiver) or a compiled semantic
// lambda; the evaluator only ever needs to ApplyWithArguments it, so both
// shapes satisfy Applyable and are stored identically in a method dict.
type Method struct {
	Selector  *Symbol
	Primitive func(args []Value) (Value, error)
	Compiled  Applyable
}

func (m *Method) GetType() Value  { return nil }
func (m *Method) GetClass() Value { return nil }
func (m *Method) PrintString() string {
	return "a CompiledMethod(" + m.Selector.Name + ")"
}
func (m *Method) IsMacro() bool { return false }

func (m *Method) ApplyWithArguments(args []Value) (Value, error) {
	if m.Primitive != nil {
		return m.Primitive(args)
	}
	return m.Compiled.ApplyWithArguments(args)
}

// Behavior is the method-dictionary-plus-superclass-chain machinery
// shared by Class and Metaclass.
type Behavior struct {
	Name       string
	Format     int
	Superclass *Class
	Subclasses []*Class
	Methods    map[*Symbol]*Method
}

func newBehavior(name string) Behavior {
	return Behavior{Name: name, Methods: make(map[*Symbol]*Method)}
}

// AddMethod stores a method under selector, overwriting any previous
// binding for the same selector (redefinition, not accumulation).
func (b *Behavior) AddMethod(selector *Symbol, method *Method) {
	b.Methods[selector] = method
}

// LookupLocal returns the method bound directly on this behavior, if any.
func (b *Behavior) LookupLocal(selector *Symbol) *Method {
	return b.Methods[selector]
}

// Class is an intrinsic or user-defined class: a name, an optional
// superclass (nil only for the very root, conventionally UndefinedObject
// itself, which has no superclass), a method dictionary, and a factory
// for basicNew.
type Class struct {
	Behavior
	Meta      *Metaclass
	BasicNew  func(c *Class) Value
}

func NewClass(name string) *Class {
	return &Class{Behavior: newBehavior(name)}
}

func (c *Class) GetType() Value  { return nil }
func (c *Class) GetClass() Value {
	if c.Meta == nil {
		return nil
	}
	return c.Meta
}
func (c *Class) PrintString() string { return c.Name }
func (c *Class) IsMacro() bool       { return false }

// RegisterInSuperclass appends c to its superclass's Subclasses list. It
// is idempotent in spirit (bootstrap calls it once per class) but does
// not itself de-duplicate, matching the reference implementation.
func (c *Class) RegisterInSuperclass() {
	if c.Superclass != nil {
		c.Superclass.Subclasses = append(c.Superclass.Subclasses, c)
	}
}

// LookupSelector walks the superclass chain starting at c, returning the
// first method found, or nil on a total miss.
func (c *Class) LookupSelector(selector *Symbol) *Method {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m := cls.LookupLocal(selector); m != nil {
			return m
		}
	}
	return nil
}

// Metaclass is the class of a class: it hosts class-side methods and
// forms a lattice parallel to the instance-side one. ClassPointer is the
// conceptual weak back-reference to the class whose metaclass this is;
// Go's GC makes a literal weak pointer unnecessary, but the field is kept
// distinct from a strong "owns" edge to mirror the reference design and
// to let PrintString fall back gracefully if it is ever left unset.
type Metaclass struct {
	Behavior
	ClassPointer *Class
	MetaMeta     *Class // this metaclass's own class: always the Metaclass class
}

func NewMetaclass(name string) *Metaclass {
	return &Metaclass{Behavior: newBehavior(name + " class")}
}

func (m *Metaclass) GetType() Value  { return nil }
func (m *Metaclass) GetClass() Value {
	if m.MetaMeta == nil {
		return nil
	}
	return m.MetaMeta
}

func (m *Metaclass) PrintString() string {
	if m.ClassPointer != nil {
		return m.ClassPointer.Name + " class"
	}
	return "a Metaclass"
}
func (m *Metaclass) IsMacro() bool { return false }

// LookupSelector walks the metaclass superclass chain. Metaclasses form a
// lattice parallel to classes; Superclass here is the metaclass's own
// Behavior.Superclass field reused to mean "superclass's metaclass" by
// bootstrap convention (see intrinsics.buildMetaHierarchy).
func (m *Metaclass) LookupSelector(selector *Symbol) *Method {
	for meta := m; meta != nil; {
		if mm := meta.LookupLocal(selector); mm != nil {
			return mm
		}
		if meta.Superclass == nil || meta.Superclass.Meta == nil {
			return nil
		}
		meta = meta.Superclass.Meta
	}
	return nil
}

// Instance is the generic representation for an object whose class has no
// dedicated native Go type (every user-defined class, and any intrinsic
// class not given a primitive kind of its own below).
type Instance struct {
	Class *Class
	Slots map[*Symbol]Value
}

func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Slots: make(map[*Symbol]Value)}
}

func (o *Instance) GetType() Value      { return nil }
func (o *Instance) GetClass() Value     { return o.Class }
func (o *Instance) PrintString() string { return "a " + o.Class.Name }
func (o *Instance) IsMacro() bool       { return false }
