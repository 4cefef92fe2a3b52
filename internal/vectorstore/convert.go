package vectorstore

import (
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

func pointToStruct(p Point) *qdrant.PointStruct {
	vectors := &qdrant.Vectors{}
	named := map[string]*qdrant.Vector{"dense": qdrant.NewVector(p.Vector...)}
	if p.Sparse != nil && len(p.Sparse.Values) > 0 {
		named["sparse"] = qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values) //nolint:staticcheck // sparse vector constructor, mirrors NewVector's shape
	}
	vectors.VectorsOptions = &qdrant.Vectors_Vectors{Vectors: &qdrant.NamedVectors{Vectors: named}}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(p.ID),
		Vectors: vectors,
		Payload: payloadToValueMap(p.Payload),
	}
}

func payloadToValueMap(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		out[k] = anyToValue(v)
	}
	return out
}

func anyToValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
	}
}

func valueMapToPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_ListValue:
		vals := kind.ListValue.GetValues()
		result := make([]string, 0, len(vals))
		for _, lv := range vals {
			if s, ok := valueToAny(lv).(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

func pointIDToString(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func buildQdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		switch {
		case c.MatchOne != "":
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   c.Field,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: c.MatchOne}},
					},
				},
			})
		case len(c.MatchAny) > 0:
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   c.Field,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: c.MatchAny}}},
					},
				},
			})
		case c.Range != nil:
			rng := &qdrant.Range{}
			if c.Range.Gte != nil {
				rng.Gte = c.Range.Gte
			}
			if c.Range.Lte != nil {
				rng.Lte = c.Range.Lte
			}
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{Key: c.Field, Range: rng},
				},
			})
		}
	}
	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}
