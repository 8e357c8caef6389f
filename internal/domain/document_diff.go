package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ChangeType classifies one flattened diff entry.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// maxValueDisplayLength bounds formatted old/new values. Longer values are
// truncated for display only; classification never depends on it.
const maxValueDisplayLength = 200

// Delta is one node of the structural difference between two JSON trees.
// A node is either a leaf change (added, removed or modified, carrying the
// old and new values) or a subtree with an ordered set of changed children.
// The JSON encoding follows the conventional delta wire format: a changed
// leaf serializes as [new], [old, new] or [old, 0, 0], and a subtree as a
// plain object.
type Delta struct {
	kind     ChangeType
	oldValue any
	newValue any
	children map[string]*Delta
	order    []string
}

func addedDelta(newValue any) *Delta {
	return &Delta{kind: ChangeAdded, newValue: newValue}
}

func removedDelta(oldValue any) *Delta {
	return &Delta{kind: ChangeRemoved, oldValue: oldValue}
}

func modifiedDelta(oldValue, newValue any) *Delta {
	return &Delta{kind: ChangeModified, oldValue: oldValue, newValue: newValue}
}

func subtreeDelta() *Delta {
	return &Delta{children: map[string]*Delta{}}
}

// IsLeaf reports whether the node is a leaf change rather than a subtree.
func (d *Delta) IsLeaf() bool {
	return d.kind != ""
}

// Kind returns the leaf change type, or "" for a subtree node.
func (d *Delta) Kind() ChangeType { return d.kind }

// Child returns the named child delta of a subtree node.
func (d *Delta) Child(key string) *Delta { return d.children[key] }

// Keys returns the subtree's child keys in deterministic traversal order.
func (d *Delta) Keys() []string {
	keys := make([]string, len(d.order))
	copy(keys, d.order)
	return keys
}

func (d *Delta) addChild(key string, child *Delta) {
	if child == nil {
		return
	}
	if _, exists := d.children[key]; !exists {
		d.order = append(d.order, key)
	}
	d.children[key] = child
}

func (d *Delta) empty() bool {
	return !d.IsLeaf() && len(d.children) == 0
}

// MarshalJSON emits the wire encoding: [new] for added, [old, new] for
// modified, [old, 0, 0] for removed, and a nested object for subtrees,
// preserving traversal order.
func (d *Delta) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case ChangeAdded:
		return json.Marshal([]any{d.newValue})
	case ChangeModified:
		return json.Marshal([]any{d.oldValue, d.newValue})
	case ChangeRemoved:
		return json.Marshal([]any{d.oldValue, 0, 0})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedChild, err := json.Marshal(d.children[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedChild)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DiffValues computes the structural delta between two sanitized JSON values.
// Equal inputs yield nil. Array elements are matched by identity, not by
// position, so inserting an element does not mark every following element as
// modified; identity-matched elements that merely moved produce no change.
func DiffValues(from, to any) *Delta {
	if reflect.DeepEqual(from, to) {
		return nil
	}

	fromMap, fromIsMap := from.(map[string]any)
	toMap, toIsMap := to.(map[string]any)
	if fromIsMap && toIsMap {
		return diffMaps(fromMap, toMap)
	}

	fromArr, fromIsArr := from.([]any)
	toArr, toIsArr := to.([]any)
	if fromIsArr && toIsArr {
		return diffArrays(fromArr, toArr)
	}

	return modifiedDelta(from, to)
}

func diffMaps(from, to map[string]any) *Delta {
	keys := make([]string, 0, len(from)+len(to))
	seen := map[string]struct{}{}
	for key := range from {
		keys = append(keys, key)
		seen[key] = struct{}{}
	}
	for key := range to {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	delta := subtreeDelta()
	for _, key := range keys {
		fromValue, inFrom := from[key]
		toValue, inTo := to[key]
		switch {
		case inFrom && !inTo:
			delta.addChild(key, removedDelta(fromValue))
		case !inFrom && inTo:
			delta.addChild(key, addedDelta(toValue))
		default:
			delta.addChild(key, DiffValues(fromValue, toValue))
		}
	}
	if delta.empty() {
		return nil
	}
	return delta
}

// diffArrays matches elements by identity key so that insertion or reordering
// does not cascade into spurious modifications. Removed elements are keyed by
// their original index prefixed with "_" to keep added and removed entries at
// the same position distinguishable, following the conventional delta format.
// Move detection is deliberately absent: a matched element that only changed
// position yields nothing.
func diffArrays(from, to []any) *Delta {
	fromByIdentity := map[string][]int{}
	for i, element := range from {
		id := elementIdentity(element)
		fromByIdentity[id] = append(fromByIdentity[id], i)
	}

	type matchedPair struct {
		fromIndex int
		toIndex   int
		identity  string
		nested    *Delta
	}

	matchedFrom := make([]bool, len(from))
	delta := subtreeDelta()
	usedKeys := map[int]struct{}{}
	var pairs []matchedPair

	for toIndex, toElement := range to {
		id := elementIdentity(toElement)
		indices := fromByIdentity[id]
		if len(indices) > 0 {
			fromIndex := indices[0]
			fromByIdentity[id] = indices[1:]
			matchedFrom[fromIndex] = true
			if nested := DiffValues(from[fromIndex], toElement); nested != nil {
				pairs = append(pairs, matchedPair{fromIndex, toIndex, id, nested})
			}
			continue
		}
		delta.addChild(strconv.Itoa(toIndex), addedDelta(toElement))
		usedKeys[toIndex] = struct{}{}
	}

	for fromIndex, matched := range matchedFrom {
		if !matched {
			delta.addChild("_"+strconv.Itoa(fromIndex), removedDelta(from[fromIndex]))
			usedKeys[fromIndex] = struct{}{}
		}
	}

	// A matched pair's nested delta is keyed by an index. The key must be the
	// same whichever direction the comparison runs, so an element that both
	// moved and changed flattens to one path set. min(fromIndex, toIndex) is
	// symmetric; ties and slots already taken by added or removed entries are
	// resolved in an order built only from symmetric data (the unordered index
	// pair and the element's identity key).
	sort.Slice(pairs, func(i, j int) bool {
		iMin, iMax := orderedIndices(pairs[i].fromIndex, pairs[i].toIndex)
		jMin, jMax := orderedIndices(pairs[j].fromIndex, pairs[j].toIndex)
		if iMin != jMin {
			return iMin < jMin
		}
		if iMax != jMax {
			return iMax < jMax
		}
		return pairs[i].identity < pairs[j].identity
	})
	for _, pair := range pairs {
		key, _ := orderedIndices(pair.fromIndex, pair.toIndex)
		for {
			if _, taken := usedKeys[key]; !taken {
				break
			}
			key++
		}
		usedKeys[key] = struct{}{}
		delta.addChild(strconv.Itoa(key), pair.nested)
	}

	if delta.empty() {
		return nil
	}
	return delta
}

func orderedIndices(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}

// elementIdentity is the explicit object-hash strategy for array matching:
// prefer an "id" field, then a "title" field, then a hash of the canonical
// JSON encoding of the whole element.
func elementIdentity(element any) string {
	if obj, ok := element.(map[string]any); ok {
		if id, ok := obj["id"]; ok && id != nil {
			return "id:" + fmt.Sprintf("%v", id)
		}
		if title, ok := obj["title"]; ok && title != nil {
			return "title:" + fmt.Sprintf("%v", title)
		}
	}
	return "hash:" + structuralHash(element)
}

func structuralHash(value any) string {
	encoded, err := canonicalJSON(value)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", value))
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON encodes with sorted object keys so structurally equal values
// hash identically regardless of map iteration order.
func canonicalJSON(value any) ([]byte, error) {
	switch typed := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			child, err := canonicalJSON(typed[key])
			if err != nil {
				return nil, err
			}
			buf.Write(child)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, element := range typed {
			if i > 0 {
				buf.WriteByte(',')
			}
			child, err := canonicalJSON(element)
			if err != nil {
				return nil, err
			}
			buf.Write(child)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(value)
	}
}

// DocumentChange is one flattened diff entry with a display-ready path.
type DocumentChange struct {
	Path        string     `json:"path"`
	Type        ChangeType `json:"type"`
	OldValue    string     `json:"oldValue,omitempty"`
	NewValue    string     `json:"newValue,omitempty"`
	DisplayPath string     `json:"displayPath,omitempty"`
}

// DiffSummary counts changes per type.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// DocumentDiff is the result of comparing two document snapshots.
type DocumentDiff struct {
	FromVersion int              `json:"fromVersion"`
	ToVersion   int              `json:"toVersion"`
	Changes     []DocumentChange `json:"changes"`
	Summary     DiffSummary      `json:"summary"`
}

// ExtractChanges flattens a delta into typed, path-addressed change records.
// Traversal is depth-first in the delta's recorded order, so the same delta
// always yields the same sequence. A delta whose root is itself a leaf, as
// DiffValues returns for two unequal scalars, flattens to a single change at
// basePath. The from tree rides along for nested formatters that need
// surrounding context.
func ExtractChanges(delta *Delta, from any, basePath string, rules DisplayRuleSet) []DocumentChange {
	changes := []DocumentChange{}
	extractChanges(delta, from, basePath, rules, &changes)
	return changes
}

func extractChanges(delta *Delta, from any, basePath string, rules DisplayRuleSet, out *[]DocumentChange) {
	if delta == nil {
		return
	}
	if delta.IsLeaf() {
		*out = append(*out, leafChange(delta, basePath, rules))
		return
	}

	for _, key := range delta.order {
		child := delta.children[key]
		// The "_" removal marker is a delta encoding detail; flat paths use
		// the plain index so comparing in either direction yields the same
		// path set.
		segment := strings.TrimPrefix(key, "_")
		currentPath := segment
		if basePath != "" {
			currentPath = basePath + "." + segment
		}

		if !child.IsLeaf() {
			extractChanges(child, childOf(from, key), currentPath, rules, out)
			continue
		}
		*out = append(*out, leafChange(child, currentPath, rules))
	}
}

func leafChange(delta *Delta, path string, rules DisplayRuleSet) DocumentChange {
	change := DocumentChange{
		Path:        path,
		Type:        delta.kind,
		DisplayPath: rules.DisplayPath(path),
	}
	switch delta.kind {
	case ChangeAdded:
		change.NewValue = formatValue(delta.newValue)
	case ChangeRemoved:
		change.OldValue = formatValue(delta.oldValue)
	case ChangeModified:
		change.OldValue = formatValue(delta.oldValue)
		change.NewValue = formatValue(delta.newValue)
	}
	return change
}

func childOf(value any, key string) any {
	switch typed := value.(type) {
	case map[string]any:
		return typed[key]
	case []any:
		index, err := strconv.Atoi(strings.TrimPrefix(key, "_"))
		if err != nil || index < 0 || index >= len(typed) {
			return nil
		}
		return typed[index]
	default:
		return nil
	}
}

// formatValue renders a value for change review. Strings and encoded
// composites are truncated at maxValueDisplayLength runes with a trailing
// ellipsis; this is purely a display concern.
func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "(none)"
	case string:
		return truncateForDisplay(typed)
	case bool:
		if typed {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case map[string]any, []any:
		encoded, err := json.MarshalIndent(typed, "", "  ")
		if err != nil {
			return truncateForDisplay(fmt.Sprintf("%v", typed))
		}
		return truncateForDisplay(string(encoded))
	default:
		return truncateForDisplay(fmt.Sprintf("%v", typed))
	}
}

func truncateForDisplay(s string) string {
	runes := []rune(s)
	if len(runes) <= maxValueDisplayLength {
		return s
	}
	return string(runes[:maxValueDisplayLength]) + "..."
}

// CompareSnapshots diffs two snapshots of the same fund and document type.
// Both sides are sanitized before comparison, so volatile metadata never
// produces a change record. Missing or malformed trees degrade to empty
// values rather than failing.
func CompareSnapshots(from, to DocumentSnapshot) (DocumentDiff, error) {
	fromRoot, err := from.compareRoot()
	if err != nil {
		return DocumentDiff{}, fmt.Errorf("failed to prepare snapshot v%d for comparison: %w", from.VersionNumber, err)
	}
	toRoot, err := to.compareRoot()
	if err != nil {
		return DocumentDiff{}, fmt.Errorf("failed to prepare snapshot v%d for comparison: %w", to.VersionNumber, err)
	}

	rules := DisplayRulesFor(to.Type)
	delta := DiffValues(fromRoot, toRoot)
	changes := ExtractChanges(delta, fromRoot, "", rules)

	diff := DocumentDiff{
		FromVersion: from.VersionNumber,
		ToVersion:   to.VersionNumber,
		Changes:     changes,
	}
	for _, change := range changes {
		switch change.Type {
		case ChangeAdded:
			diff.Summary.Added++
		case ChangeRemoved:
			diff.Summary.Removed++
		case ChangeModified:
			diff.Summary.Modified++
		}
	}
	return diff, nil
}
