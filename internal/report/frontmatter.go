/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

type ReleaseStatus string

const (
	ReleaseNotReleased ReleaseStatus = "not_released"
	ReleaseReleased    ReleaseStatus = "released"
)

// DateFormat is the calendar-date layout used in front matter.
const DateFormat = "2006-01-02"

// FrontMatter is the machine-readable header of a release document. Once a
// human flips release_status off not_released the document is locked and the
// sync flow stops touching it.
type FrontMatter struct {
	ReleaseStatus ReleaseStatus `yaml:"release_status"`
	ReleaseAt     string        `yaml:"release_at"`
}

const fmDelim = "---"

// RenderFrontMatter serializes the header including both delimiters.
func RenderFrontMatter(fm any) string {
	b, err := yaml.Marshal(fm)
	if err != nil {
		return fmDelim + "\n" + fmDelim + "\n"
	}
	return fmDelim + "\n" + string(b) + fmDelim + "\n"
}

// ParseFrontMatter extracts and decodes the leading YAML block. A document
// without a well-formed block is an error; callers treat that as "do not
// touch this document".
func ParseFrontMatter(body string) (FrontMatter, error) {
	var fm FrontMatter
	block, err := frontMatterBlock(body)
	if err != nil {
		return fm, err
	}
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return fm, err
	}
	if fm.ReleaseStatus == "" {
		return fm, errors.New("front matter: missing release_status")
	}
	return fm, nil
}

func frontMatterBlock(body string) (string, error) {
	s := strings.TrimLeft(body, " \t\r\n\ufeff")
	if !strings.HasPrefix(s, fmDelim) {
		return "", errors.New("front matter: missing opening delimiter")
	}
	s = s[len(fmDelim):]
	s = strings.TrimPrefix(s, "\r")
	if !strings.HasPrefix(s, "\n") {
		return "", errors.New("front matter: missing opening delimiter")
	}
	s = s[1:]
	end := strings.Index(s, "\n"+fmDelim)
	if end < 0 {
		return "", errors.New("front matter: missing closing delimiter")
	}
	return s[:end+1], nil
}
