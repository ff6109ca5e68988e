package sharedstrings

import (
	"encoding/xml"
	"os"
	"strings"
)

func startElement(s string) xml.StartElement {
	tok, err := xml.NewDecoder(strings.NewReader(s)).Token()
	if err != nil {
		panic(err)
	}
	return tok.(xml.StartElement)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
