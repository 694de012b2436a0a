package cfgdoc

import (
	"strings"
)

// Preamble opens every generated file.
const Preamble = "-- Generated by podcfg. Local changes are overwritten on the next settings update."

const _indent = "\t"

// Assemble renders the document: the preamble, the global statements, then
// each section header followed by its indented statements. Order is exactly
// the insertion order, so assembling the same document twice yields the same
// bytes.
func Assemble(doc *Document) []byte {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	if doc.global.Len() > 0 {
		sb.WriteString("\n")
		writeEntries(&sb, doc.global, "")
	}

	for _, sec := range doc.sections {
		sb.WriteString("\n")
		sb.WriteString(sec.Header)
		sb.WriteString("\n")
		writeEntries(&sb, sec, _indent)
	}
	return []byte(sb.String())
}

func writeEntries(sb *strings.Builder, sec *Section, indent string) {
	for _, e := range sec.entries {
		sb.WriteString(indent)
		sb.WriteString(e.Key)
		sb.WriteString(" = ")
		sb.WriteString(e.Value.text)
		sb.WriteString("\n")
	}
}
