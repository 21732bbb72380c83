// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package i18n keeps translation bundles keyed by namespace and language.
// Each plugin owns one namespace. Lookups fall back to the default language
// and then to the key itself.
package i18n

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"text/template"
)

const DefaultLanguage = "en-US"

// Resources maps message keys to translated text.
type Resources map[string]string

// Bundles holds namespace -> language -> Resources.
type Bundles struct {
	mu        sync.RWMutex
	fallback  string
	languages []string
	data      map[string]map[string]Resources
}

// New creates an empty store. The first language is the fallback.
func New(languages ...string) *Bundles {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	return &Bundles{
		fallback:  languages[0],
		languages: slices.Clone(languages),
		data:      make(map[string]map[string]Resources),
	}
}

// Languages returns the configured languages, fallback first.
func (b *Bundles) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.languages)
}

// Get returns a copy of one bundle. A missing bundle is empty, not nil.
func (b *Bundles) Get(namespace, lang string) Resources {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := Resources{}
	maps.Copy(out, b.data[namespace][lang])
	return out
}

// Update merges keys into a bundle and adds lang to the known languages.
func (b *Bundles) Update(namespace, lang string, keys Resources) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ns, ok := b.data[namespace]
	if !ok {
		ns = make(map[string]Resources)
		b.data[namespace] = ns
	}
	res, ok := ns[lang]
	if !ok {
		res = Resources{}
		ns[lang] = res
	}
	maps.Copy(res, keys)
	if !slices.Contains(b.languages, lang) {
		b.languages = append(b.languages, lang)
	}
}

// Remove drops every bundle of namespace.
func (b *Bundles) Remove(namespace string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, namespace)
}

// Snapshot returns namespace -> language -> Resources for namespaces, with
// an entry for every known language.
func (b *Bundles) Snapshot(namespaces []string) map[string]map[string]Resources {
	langs := b.Languages()
	out := make(map[string]map[string]Resources, len(namespaces))
	for _, ns := range namespaces {
		out[ns] = make(map[string]Resources, len(langs))
		for _, lang := range langs {
			out[ns][lang] = b.Get(ns, lang)
		}
	}
	return out
}

// Translate resolves "namespace:key" or a bare key searched in every
// namespace. templateData replaces {{.Name}} placeholders.
func (b *Bundles) Translate(lang, key string, templateData map[string]string) string {
	msg, ok := b.lookup(lang, key)
	if !ok && lang != b.fallback {
		msg, ok = b.lookup(b.fallback, key)
	}
	if !ok {
		msg = key
	}
	return applyTemplate(msg, templateData)
}

// Tr translates key in the fallback language.
func (b *Bundles) Tr(key string) string {
	return b.Translate(b.fallback, key, nil)
}

// All returns the translation of key in every language that has one.
func (b *Bundles) All(key string) map[string]string {
	out := make(map[string]string)
	for _, lang := range b.Languages() {
		if msg, ok := b.lookup(lang, key); ok {
			out[lang] = msg
		}
	}
	return out
}

func (b *Bundles) lookup(lang, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ns, k, found := strings.Cut(key, ":"); found {
		msg, ok := b.data[ns][lang][k]
		return msg, ok
	}
	for _, ns := range slices.Sorted(maps.Keys(b.data)) {
		if msg, ok := b.data[ns][lang][key]; ok {
			return msg, true
		}
	}
	return "", false
}

// applyTemplate applies template data to the message string.
// Supports {{.Key}} format template variable replacement.
func applyTemplate(message string, templateData map[string]string) string {
	if len(templateData) == 0 || !strings.Contains(message, "{{") {
		return message
	}

	tmpl, err := template.New("message").Option("missingkey=zero").Parse(message)
	if err != nil {
		return simpleReplace(message, templateData)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData); err != nil {
		return simpleReplace(message, templateData)
	}
	return buf.String()
}

// simpleReplace replaces {{.Key}} and {{Key}} when the template does not parse.
func simpleReplace(message string, templateData map[string]string) string {
	result := message
	for key, value := range templateData {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{.%s}}", key), value)
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}
