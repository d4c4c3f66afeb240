package catalog

// Default returns the bundled four-character catalog.
func Default() *Catalog {
	c, err := New(defaultRecords)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultRecords = []CharacterRecord{
	{
		ID:             "char_id_1",
		Name:           "Character One",
		Description:    "Enter a compelling description for Character One here. Explain their background or starting situation.",
		Picture:        "Picture_Char1",
		CharacterName:  "Actor1_Spritesheet",
		CharacterIndex: 0,
		StartingMap:    2,
		StartingX:      10,
		StartingY:      10,
	},
	{
		ID:             "char_id_2",
		Name:           "Character Two",
		Description:    "Description for Character Two. Make it unique!",
		Picture:        "Picture_Char2",
		CharacterName:  "Actor2_Spritesheet",
		CharacterIndex: 0,
		StartingMap:    2,
		StartingX:      12,
		StartingY:      10,
	},
	{
		ID:             "char_id_3",
		Name:           "Character Three",
		Description:    "Placeholder description for the third character choice.",
		Picture:        "Picture_Char3",
		CharacterName:  "Actor3_Spritesheet",
		CharacterIndex: 0,
		StartingMap:    2,
		StartingX:      14,
		StartingY:      10,
	},
	{
		ID:             "char_id_4",
		Name:           "Character Four",
		Description:    "The final character option's description goes here.",
		Picture:        "Picture_Char4",
		CharacterName:  "Actor4_Spritesheet",
		CharacterIndex: 0,
		StartingMap:    2,
		StartingX:      16,
		StartingY:      10,
	},
}
