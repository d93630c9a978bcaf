package rebuf

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnit, "unit"},
		{KindInt32, "int32"},
		{KindStr, "str"},
		{KindSome, "some"},
		{KindTupleStruct, "tuple struct"},
		{KindNewtypeStruct, "newtype struct"},
		{KindStructVariant, "struct variant"},
		{KindOption, "option"},
		{KindVariant, "variant"},
		{Kind(200), "unknown(200)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindClasses(t *testing.T) {
	for _, k := range []Kind{KindInt8, KindInt16, KindInt32, KindInt64} {
		if !k.isSigned() || k.isUnsigned() || k.isFloat() {
			t.Errorf("%s misclassified", k)
		}
	}
	for _, k := range []Kind{KindUint8, KindUint16, KindUint32, KindUint64} {
		if !k.isUnsigned() || k.isSigned() {
			t.Errorf("%s misclassified", k)
		}
	}
	for _, k := range []Kind{KindUnitVariant, KindNewtypeVariant, KindTupleVariant, KindStructVariant} {
		if !k.isVariant() {
			t.Errorf("%s should be a variant kind", k)
		}
	}
	if KindBool.isSigned() || KindStr.isVariant() || KindNewtypeStruct.isVariant() || KindChar.isFloat() {
		t.Error("non-numeric kinds misclassified")
	}
}
