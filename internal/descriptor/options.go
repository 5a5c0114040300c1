package descriptor

// LogMode is the log_mode field option.
type LogMode int32

const (
	LogModeUnset     LogMode = 0
	LogModeAutomatic LogMode = 1
	LogModeBytes     LogMode = 2
)

// Extension field numbers of the atom options on google.protobuf.FieldOptions.
const (
	ExtStateFieldOption       = 50000
	ExtIsUID                  = 50001
	ExtLogMode                = 50002
	ExtModule                 = 50004
	ExtTruncateTimestamp      = 50005
	ExtRestrictionCategory    = 50006
	ExtFieldRestrictionOption = 50007
)

// FieldOptions holds the decoded atom extensions of a field. Optional
// scalars are pointers so presence can be told apart from the zero value.
type FieldOptions struct {
	Modules             []string
	IsUID               bool
	TruncateTimestamp   bool
	LogMode             LogMode
	RestrictionCategory *int32
	FieldRestriction    *FieldRestrictionOption
	StateField          *StateFieldOption
}

// IsBinary reports whether the field is marked for raw byte logging.
func (o FieldOptions) IsBinary() bool {
	return o.LogMode == LogModeBytes
}

// HasModule reports whether the field lists module.
func (o FieldOptions) HasModule(module string) bool {
	for _, m := range o.Modules {
		if m == module {
			return true
		}
	}
	return false
}

// StateFieldOption is the state_field_option extension.
type StateFieldOption struct {
	PrimaryField         bool
	ExclusiveState       bool
	PrimaryFieldFirstUID bool

	DefaultStateValue      *int32
	TriggerStateResetValue *int32
	Nested                 *bool
}

// FieldRestrictionOption is the field_restriction_option extension.
type FieldRestrictionOption struct {
	PeripheralDeviceInfo      bool
	AppUsage                  bool
	AppActivity               bool
	HealthConnect             bool
	Accessibility             bool
	SystemSearch              bool
	UserEngagement            bool
	AmbientSensing            bool
	DemographicClassification bool
}

// Restriction categories accepted by restriction_category.
const (
	RestrictionDiagnostic         int32 = 1
	RestrictionSystemIntelligence int32 = 2
	RestrictionAuthentication     int32 = 3
	RestrictionFraudAndAbuse      int32 = 4
)

// Int32 returns a pointer to v, for optional option values.
func Int32(v int32) *int32 { return &v }

// Bool returns a pointer to v, for optional option values.
func Bool(v bool) *bool { return &v }
