package sel

// testSchema builds the schema every scenario in this test suite shares:
// a top-level boolean "deleted" and a nested "media.label" branch with a
// "name" keyword and a "score" float, plus a "color" keyword sibling and a
// top-level "date" date field.
func testSchema() *Schema {
	raw := map[string]any{
		"deleted": map[string]any{"type": TypeBoolean},
		"date":    map[string]any{"type": TypeDate},
		"media": map[string]any{
			"type": TypeObject,
			"properties": map[string]any{
				"label": map[string]any{
					"type": TypeNested,
					"properties": map[string]any{
						"name":  map[string]any{"type": TypeKeyword},
						"score": map[string]any{"type": TypeFloat},
						"color": map[string]any{"type": TypeKeyword},
					},
				},
			},
		},
	}
	s, err := NewSchema(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func testConfig() Config {
	cfg := DefaultConfig()
	return cfg
}
