package common

import (
	"sort"
	"strings"
)

// StringSet is a set of strings
type StringSet map[string]struct{}

// ParseStringSet parses a comma separated list like "1, 2,3" into a StringSet, ignoring empty items
func ParseStringSet(s string) StringSet {
	ss := StringSet{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			ss.Add(item)
		}
	}
	return ss
}

// Contains checks if Stringset contains the string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// ContainsAny checks if StringSet contains any of the strings
func (ss StringSet) ContainsAny(elems []string) bool {
	for _, elem := range elems {
		if ss.Contains(elem) {
			return true
		}
	}
	return false
}

// Add adds the string to StringSet
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from StringSet
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// Copy returns an independent copy of the StringSet
func (ss StringSet) Copy() StringSet {
	cp := make(StringSet, len(ss))
	for s := range ss {
		cp[s] = struct{}{}
	}
	return cp
}

// ToList convert StringSet to a sorted string slice
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	sort.Strings(keys)
	return keys
}

// String joins the sorted items with commas, the inverse of ParseStringSet
func (ss StringSet) String() string {
	return strings.Join(ss.ToList(), ",")
}
