package model

import "context"

// PrefType is the type of a preference.
type PrefType string

const (
	// PrefTypeString is the string type.
	PrefTypeString = PrefType("string")

	// PrefTypeInt is the integer type.
	PrefTypeInt = PrefType("int")

	// PrefTypeBool is the boolean type.
	PrefTypeBool = PrefType("bool")
)

// PreferenceStore is the typed preference store of the host platform.
//
// The getters return the given default value when the preference
// does not have a user value.
type PreferenceStore interface {
	GetStringPref(name string, defaultValue string) (string, error)
	GetIntPref(name string, defaultValue int64) (int64, error)
	GetBoolPref(name string, defaultValue bool) (bool, error)

	SetStringPref(name string, value string) error
	SetIntPref(name string, value int64) error
	SetBoolPref(name string, value bool) error

	// ClearUserPref removes the user value of a preference.
	ClearUserPref(name string) error

	// PrefHasUserValue returns whether the preference has a user value.
	PrefHasUserValue(name string) (bool, error)

	// Changes returns a channel where we post the names of the
	// preferences that changed. The channel is closed when the
	// context is done.
	Changes(ctx context.Context) <-chan string
}
