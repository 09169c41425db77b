package enums

// AccountStatus is the administrative state kept on current-schema profiles.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

func (s AccountStatus) String() string {
	return string(s)
}
