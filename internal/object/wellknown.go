package object

// defaultXClass holds the intrinsic class each primitive Go-native value
// type answers from GetClass once the bootstrap has run; every
// constructor below stamps it onto the value it builds immediately, the
// same retroactive-binding idea as SetDefaultSymbolClass but for values
// created after bootstrap rather than before it (there is nothing to
// retrofit: these types only ever exist once intrinsics.Bootstrap has
// already produced the classes).
var (
	defaultIntegerClass     *Class
	defaultFloatClass       *Class
	defaultCharacterClass   *Class
	defaultStringClass      *Class
	defaultArrayClass       *Class
	defaultByteArrayClass   *Class
	defaultTupleClass       *Class
	defaultAssociationClass *Class
)

// SetDefaultClasses is called once by the intrinsics bootstrap so every
// Integer/Float/Character/String/Array/ByteArray/Tuple/Association value
// constructed afterward answers the right class from GetClass.
func SetDefaultClasses(integer, float, character, str, array, byteArray, tuple, association *Class) {
	defaultIntegerClass = integer
	defaultFloatClass = float
	defaultCharacterClass = character
	defaultStringClass = str
	defaultArrayClass = array
	defaultByteArrayClass = byteArray
	defaultTupleClass = tuple
	defaultAssociationClass = association
}
