package vm

import "fmt"

// Operator names one entry of the operator surface.
type Operator uint8

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreater
	OpLess
	OpGreaterEquals
	OpLessEquals
	OpNot
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpIncrement
	OpDecrement
	OpNegative
	OpShiftLeft
	OpShiftRight
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpIndexGet
	OpIndexSet
	OpPropertyGet
	OpPropertySet
	OpCall
	OpReferenceGet
	OpReferenceSet
	OpIterator
	OpHasNext
	OpNext

	operatorCount
)

var operatorNames = [operatorCount]string{
	OpEquals:        "klang_operatorEquals",
	OpNotEquals:     "klang_operatorNotEquals",
	OpGreater:       "klang_operatorGreater",
	OpLess:          "klang_operatorLess",
	OpGreaterEquals: "klang_operatorGreaterEquals",
	OpLessEquals:    "klang_operatorLessEquals",
	OpNot:           "klang_operatorNot",
	OpPlus:          "klang_operatorPlus",
	OpMinus:         "klang_operatorMinus",
	OpMultiply:      "klang_operatorMultiply",
	OpDivide:        "klang_operatorDivide",
	OpModulo:        "klang_operatorModule",
	OpIncrement:     "klang_operatorIncrease",
	OpDecrement:     "klang_operatorDecrease",
	OpNegative:      "klang_operatorNegative",
	OpShiftLeft:     "klang_operatorBitwiseLeft",
	OpShiftRight:    "klang_operatorBitwiseRight",
	OpBitAnd:        "klang_operatorBitwiseAnd",
	OpBitOr:         "klang_operatorBitwiseOr",
	OpBitXor:        "klang_operatorBitwiseXor",
	OpBitNot:        "klang_operatorBitwiseNot",
	OpIndexGet:      "klang_operatorArrayGet",
	OpIndexSet:      "klang_operatorArraySet",
	OpPropertyGet:   "klang_operatorGetProperty",
	OpPropertySet:   "klang_operatorSetProperty",
	OpCall:          "klang_operatorCall",
	OpReferenceGet:  "klang_operatorReferenceGet",
	OpReferenceSet:  "klang_operatorReferenceSet",
	OpIterator:      "klang_operatorIterator",
	OpHasNext:       "klang_operatorHasNext",
	OpNext:          "klang_operatorNext",
}

// String returns the operator's source-level name.
func (op Operator) String() string {
	if op < operatorCount {
		return operatorNames[op]
	}
	return fmt.Sprintf("Operator(%d)", op)
}
