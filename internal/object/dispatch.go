package object

import "fmt"

// PerformWithArguments is the sole message-dispatch entry point: every
// MessageSend in the evaluator funnels through this free function rather
// than a method on Value, so the dispatch algorithm lives in one place
// and is table-driven (a method-dict lookup) instead of relying on Go
// interface embedding to emulate virtual calls.
//
// Dispatch has two disciplines depending on the receiver:
//   - type-directed: GetType() is non-nil (types, semantic nodes,
//     closures carry their own type object) and that type's method
//     dictionary is consulted first;
//   - class-directed: GetType() is nil, so GetClass() and its
//     superclass chain are walked instead.
//
// If type-directed lookup misses, class-directed lookup is tried next
// before giving up; this lets type-level values still answer the common
// Object protocol (printString, class, ==) defined on their class.
func PerformWithArguments(selector *Symbol, receiver Value, arguments []Value) (Value, error) {
	args := append([]Value{receiver}, arguments...)

	if t := receiver.GetType(); t != nil {
		if method := lookupOn(t, selector); method != nil {
			return method.ApplyWithArguments(args)
		}
	}
	if c := receiver.GetClass(); c != nil {
		if method := lookupOn(c, selector); method != nil {
			return method.ApplyWithArguments(args)
		}
	}
	return nil, fmt.Errorf("Failed to find method `%s` in `%s`", selector.Name, describeReceiverHome(receiver))
}

// lookupOn looks up selector against home, which may itself be a Class,
// a Metaclass, or any other Value that exposes a method dictionary via
// one of those two shapes (types are layered on in internal/types and
// reuse Class as their method home).
func lookupOn(home Value, selector *Symbol) *Method {
	switch h := home.(type) {
	case *Class:
		return h.LookupSelector(selector)
	case *Metaclass:
		return h.LookupSelector(selector)
	default:
		return nil
	}
}

func describeReceiverHome(receiver Value) string {
	if t := receiver.GetType(); t != nil {
		return t.PrintString()
	}
	if c := receiver.GetClass(); c != nil {
		return c.PrintString()
	}
	return "UndefinedObject"
}
