package entity

// FieldTag names an inheritable event field. A tag present in an event's
// inherited set means the field resolves dynamically from the inheritance
// source (the schedule for standalone/master events, the master for
// occurrences) instead of carrying an authored value.
type FieldTag string

const (
	FieldTitle               FieldTag = "TITLE"
	FieldTimeZone            FieldTag = "TIME_ZONE"
	FieldTime                FieldTag = "TIME"
	FieldLocation            FieldTag = "LOCATION"
	FieldResources           FieldTag = "RESOURCES"
	FieldCapacity            FieldTag = "CAPACITY"
	FieldParticipants        FieldTag = "PARTICIPANTS"
	FieldConferencingDetails FieldTag = "CONFERENCING_DETAILS"
)

// InheritableTags lists every tag inheritance applies to, in a stable order.
var InheritableTags = []FieldTag{
	FieldTitle,
	FieldTimeZone,
	FieldTime,
	FieldLocation,
	FieldResources,
	FieldCapacity,
	FieldParticipants,
	FieldConferencingDetails,
}

// ValidFieldTag reports whether s names a known inheritable field.
func ValidFieldTag(s string) bool {
	for _, t := range InheritableTags {
		if string(t) == s {
			return true
		}
	}
	return false
}

// OccurrenceInheritedTags are the tags a freshly materialized INSTANCE
// inherits. TIME is excluded: an occurrence's start/end come from its rule
// slot and are never resolved from the master's own start/end.
func OccurrenceInheritedTags() []FieldTag {
	tags := make([]FieldTag, 0, len(InheritableTags)-1)
	for _, t := range InheritableTags {
		if t == FieldTime {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}
