// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package logql

import (
	"slices"
	"strings"
)

// Parser is the parser stage a field needs.
type Parser string

const (
	ParserLogfmt             Parser = "logfmt"
	ParserJSON               Parser = "json"
	ParserMixed              Parser = "mixed"
	ParserStructuredMetadata Parser = "structuredMetadata"
)

// DropErrorsStage removes the error labels parsers add for lines they could
// not parse.
const DropErrorsStage = "| drop __error__, __error_details__"

// ExtractParser resolves the parser for a detected field from its parser
// list. A nil list means structured metadata. Entries may be comma separated
// lists; empty names and structuredMetadata are ignored.
func ExtractParser(parsers []string) Parser {
	if parsers == nil {
		return ParserStructuredMetadata
	}
	var distinct []string
	for _, entry := range parsers {
		for _, p := range strings.Split(entry, ",") {
			p = strings.TrimSpace(p)
			if p == "" || p == string(ParserStructuredMetadata) {
				continue
			}
			if !slices.Contains(distinct, p) {
				distinct = append(distinct, p)
			}
		}
	}
	switch len(distinct) {
	case 0:
		return ParserStructuredMetadata
	case 1:
		return Parser(distinct[0])
	default:
		return ParserMixed
	}
}

// ExtractParserFromArray resolves the parser stage that serves every parser
// in ps at once.
func ExtractParserFromArray(ps []Parser) Parser {
	var json, logfmt bool
	for _, p := range ps {
		switch p {
		case ParserJSON:
			json = true
		case ParserLogfmt:
			logfmt = true
		case ParserMixed:
			json, logfmt = true, true
		}
	}
	switch {
	case json && logfmt:
		return ParserMixed
	case json:
		return ParserJSON
	case logfmt:
		return ParserLogfmt
	default:
		return ParserStructuredMetadata
	}
}

// IncludesJSON reports whether p runs the json parser.
func (p Parser) IncludesJSON() bool {
	return p == ParserJSON || p == ParserMixed
}

// ParserStage renders the pipeline stages for p. jsonArgs are the label
// extraction arguments of the json stage and may be empty. The json stage
// always runs before logfmt so logfmt cannot overwrite labels json already
// extracted; logfmt alone does not drop errors.
func ParserStage(p Parser, jsonArgs string) string {
	jsonStage := "| json"
	if jsonArgs != "" {
		jsonStage += " " + jsonArgs
	}
	jsonStage += " " + DropErrorsStage

	switch p {
	case ParserJSON:
		return jsonStage
	case ParserLogfmt:
		return "| logfmt"
	case ParserMixed:
		return jsonStage + " | logfmt " + DropErrorsStage
	default:
		return ""
	}
}
