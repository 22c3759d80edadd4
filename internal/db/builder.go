package db

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Text adds an analyzed text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldText})
	return b
}

// TextWithKeyword adds a text field with an exact keyword sub-field.
func (b *IndexBuilder) TextWithKeyword(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldText, Keyword: true})
	return b
}

// Keyword adds an exact string field.
func (b *IndexBuilder) Keyword(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldKeyword})
	return b
}

// KeywordList adds an array-valued exact string field.
func (b *IndexBuilder) KeywordList(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldKeyword, Multi: true})
	return b
}

// Date adds a date field.
func (b *IndexBuilder) Date(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldDate})
	return b
}

// Integer adds a whole number field.
func (b *IndexBuilder) Integer(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldInteger})
	return b
}

// Float adds a floating point field.
func (b *IndexBuilder) Float(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldFloat})
	return b
}

// Boolean adds a boolean field.
func (b *IndexBuilder) Boolean(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: FieldBoolean})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	def.Fields = append([]IndexField(nil), b.def.Fields...)
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// MustBuild is like Build but panics on an invalid definition.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic("db: invalid index definition: " + err.Error())
	}
	return def
}
