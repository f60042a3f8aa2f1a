package directory

// Location represents a school site in the remote directory.
// Locations are immutable once fetched; they form the working set
// provisioning and scheduling operate over.
type Location struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SchoolClass represents a class group in the remote directory.
type SchoolClass struct {
	ID         int    `json:"id"`
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	LocationID int    `json:"locationId"`
}

// User represents a directory account (student or teacher).
type User struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	LocationID int    `json:"locationId"`

	// GroupIDs are the member group ids for this user.
	GroupIDs []int `json:"memberOf"`

	// TeacherGroups are the group ids this user teaches.
	TeacherGroups []int `json:"teacherGroups"`
}

// UserGroup represents a directory user group.
type UserGroup struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	LocationID int    `json:"locationId"`
}

// Owner identifies the student a device is assigned to.
type Owner struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Device represents a managed tablet in the remote directory.
//
// Owner is nil when the device is unassigned; unassigned devices are
// excluded from lock/unlock actions by the batch executor.
type Device struct {
	SerialNumber string  `json:"serialNumber"`
	UDID         string  `json:"UDID"`
	Name         string  `json:"name"`
	AssetTag     string  `json:"assetTag,omitempty"`
	LocationID   int     `json:"locationId"`
	BatteryLevel float64 `json:"batteryLevel"`
	Owner        *Owner  `json:"owner,omitempty"`
}

// HasOwner reports whether the device is assigned to a student.
func (d Device) HasOwner() bool {
	return d.Owner != nil
}

// SessionToken is the opaque bearer token returned by Authenticate.
// It is obtained once per bootstrap run and attached to all subsequent
// privileged device calls.
type SessionToken string
