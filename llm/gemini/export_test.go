package gemini

var TextOf = textOf
