package normalize

import (
	"bindgen/internal/frontend"
	"bindgen/internal/model"
)

// Value folds the initializer expr of an entity of type qt. The result is
// absent whenever evaluation fails, has side effects or relies on undefined
// behavior.
func (n *Normalizer) Value(qt frontend.QualType, expr *frontend.Expr) model.Literal {
	if expr == nil {
		return model.Literal{}
	}

	res, ok := n.eval.EvaluateAsRValue(expr)
	if !ok {
		if s, ok := n.Destructure(expr); ok {
			return model.StringLiteral(s)
		}
		return model.Literal{}
	}
	if res.HasSideEffects || res.HasUndefinedBehavior {
		return model.Literal{}
	}

	// Addresses mean nothing to the consumer; read the literal instead.
	if qt.IsPointer() && qt.Pointee().IsCharacter() {
		if s, ok := n.Destructure(expr); ok {
			return model.StringLiteral(s)
		}
		return model.Literal{}
	}

	lit, _ := valueFromAPValue(res.Val, qt)
	return lit
}

func valueFromAPValue(v frontend.APValue, qt frontend.QualType) (model.Literal, bool) {
	switch {
	case qt.IsPointer():
		if v.Kind != frontend.APLValue {
			return model.Literal{}, false
		}
		return model.BoolLiteral(v.IsNullPointer()), true
	case qt.IsBoolean():
		if v.Kind != frontend.APInt {
			return model.Literal{}, false
		}
		return model.BoolLiteral(v.BoolValue()), true
	case qt.IsInteger():
		if v.Kind != frontend.APInt {
			return model.Literal{}, false
		}
		if qt.IsSignedInteger() {
			return model.IntLiteral(v.ExtValue()), true
		}
		return model.UIntLiteral(v.ZExtValue()), true
	case qt.IsFloating():
		if v.Kind != frontend.APFloat {
			return model.Literal{}, false
		}
		switch v.Semantics {
		case frontend.IEEESingle:
			return model.DoubleLiteral(float64(float32(v.Float))), true
		case frontend.IEEEDouble:
			return model.DoubleLiteral(v.Float), true
		}
	}
	return model.Literal{}, false
}

// Destructure recognizes a string literal, possibly wrapped in temporaries,
// casts, parentheses and constructions of a known string class.
func (n *Normalizer) Destructure(expr *frontend.Expr) (string, bool) {
	if expr == nil {
		return "", false
	}
	switch expr.Kind {
	case frontend.ExprMaterializeTemporary, frontend.ExprWithCleanups, frontend.ExprBindTemporary,
		frontend.ExprImplicitCast, frontend.ExprExplicitCast, frontend.ExprParen:
		return n.Destructure(expr.Operand())
	case frontend.ExprConstruct:
		if !n.isStringClass(expr.Class) {
			return "", false
		}
		switch len(expr.Sub) {
		case 0:
			return "", true
		case 1:
			return n.Destructure(expr.Sub[0])
		}
		return "", false
	case frontend.ExprStringLiteral:
		return expr.Text, true
	}
	return "", false
}
