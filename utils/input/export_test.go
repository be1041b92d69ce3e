package input

var DecodeDocument = decodeDocument
