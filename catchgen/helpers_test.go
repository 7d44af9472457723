package catchgen

import "context"

// sourceResolver 直接把 Annotation.Source 当作求值结果，Source 不是 *ConstObject 时视为无法解析
var sourceResolver = ResolverFunc(func(_ context.Context, ann *Annotation) (*ConstObject, error) {
	obj, ok := ann.Source.(*ConstObject)
	if !ok || obj == nil {
		return nil, ErrUnresolvable
	}
	return obj, nil
})

func directive(obj *ConstObject) *Annotation {
	return &Annotation{
		Symbol: DirectiveSymbol(DefaultLibrary),
		Raw:    "@ErrorCatching()",
		Source: obj,
	}
}

func marker() *Annotation {
	return &Annotation{Symbol: MarkerSymbol(DefaultLibrary), Raw: "@GenerateErrorCatching()"}
}

func catchersValue(pairs ...string) *ConstValue {
	entries := make([]ConstEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, Entry(TypeRef(pairs[i]), FuncRef(pairs[i+1])))
	}
	return Map(entries...)
}

func method(name string, ann *Annotation, params ...*Parameter) *MethodDeclaration {
	m := &MethodDeclaration{Name: name, Parameters: params}
	if ann != nil {
		m.Annotations = []*Annotation{ann}
	}
	return m
}

func param(typ, name string) *Parameter {
	return &Parameter{Name: name, Type: typ, Kind: ParamPositional}
}
