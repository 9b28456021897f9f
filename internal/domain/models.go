// Package domain defines the entities the scheduling backend operates over:
// reference data (Program, Location, Schedule, ScheduleException), the
// virtual Session and its persistent counters shadow (SessionSummary), and
// the two write-path entities (Booking, AttendanceRecord).
package domain

import "time"

// ScheduleType distinguishes a bookable SESSION from an unbookable BLOCK
// (e.g. a holiday or maintenance window).
type ScheduleType string

const (
	ScheduleTypeSession ScheduleType = "SESSION"
	ScheduleTypeBlock   ScheduleType = "BLOCK"
)

// ExceptionType distinguishes a cancelled occurrence from one with
// overridden fields.
type ExceptionType string

const (
	ExceptionCancelled ExceptionType = "CANCELLED"
	ExceptionOverride  ExceptionType = "OVERRIDE"
)

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingWaitlist  BookingStatus = "WAITLIST"
)

// AttendanceStatus is the outcome of a check-in.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceNoShow  AttendanceStatus = "NO_SHOW"
)

// CheckInMethod records how an AttendanceRecord's coordinates (if any) were
// obtained.
type CheckInMethod string

const (
	CheckInGPS      CheckInMethod = "GPS"
	CheckInManual   CheckInMethod = "MANUAL"
	CheckInOverride CheckInMethod = "OVERRIDE"
)

// Host is one provider or resource assigned to a session. The first host in
// a Schedule's or override's Hosts slice is the primary, used for
// host-indexed lookup.
type Host struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

// Program is reference metadata for what is being scheduled.
type Program struct {
	TenantID    string         `json:"tenantId"`
	ProgramID   string         `json:"programId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Location is a physical place with optional GPS coordinates used for
// check-in proximity gating.
type Location struct {
	TenantID            string         `json:"tenantId"`
	LocationID          string         `json:"locationId"`
	Name                string         `json:"name"`
	HasCoordinates      bool           `json:"-"`
	Lat                 float64        `json:"lat,omitempty"`
	Lng                 float64        `json:"lng,omitempty"`
	CheckInRadiusMeters float64        `json:"checkInRadiusMeters"`
	Extra               map[string]any `json:"extra,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// Schedule is a time pattern: a template occurrence plus, optionally, a
// recurrence rule that expands it into many occurrences.
type Schedule struct {
	TenantID       string         `json:"tenantId"`
	ScheduleID     string         `json:"scheduleId"`
	Type           ScheduleType   `json:"type"`
	ProgramID      string         `json:"programId,omitempty"`
	LocationID     string         `json:"locationId,omitempty"`
	Timezone       string         `json:"timezone"`
	Start          string         `json:"start"` // local wall-clock "YYYY-MM-DDTHH:MM:SS"
	End            string         `json:"end"`
	IsRecurring    bool           `json:"isRecurring"`
	RRule          string         `json:"rrule,omitempty"`
	HasCapacity    bool           `json:"-"`
	BaseCapacity   int            `json:"baseCapacity,omitempty"`
	Hosts          []Host         `json:"hosts,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ScheduleException is a per-date override of a recurring (or single)
// schedule, keyed by the local occurrence date in the schedule's zone.
type ScheduleException struct {
	TenantID          string         `json:"tenantId"`
	ScheduleID        string         `json:"scheduleId"`
	OccurrenceDate    string         `json:"occurrenceDate"` // YYYY-MM-DD
	Type              ExceptionType  `json:"type"`
	OverrideStart     string         `json:"overrideStart,omitempty"`
	OverrideEnd       string         `json:"overrideEnd,omitempty"`
	HasOverrideCap    bool           `json:"-"`
	OverrideCapacity  int            `json:"overrideCapacity,omitempty"`
	OverrideHosts     []Host         `json:"overrideHosts,omitempty"`
	OverrideLocation  string         `json:"overrideLocationId,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Session is a virtual, never-persisted instance of a schedule on a
// specific local date.
type Session struct {
	TenantID     string    `json:"tenantId"`
	SessionID    string    `json:"sessionId"`
	ScheduleID   string    `json:"scheduleId"`
	ProgramID    string    `json:"programId,omitempty"`
	Type         ScheduleType `json:"type"`
	Date         string    `json:"date"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Timezone     string    `json:"timezone"`
	Hosts        []Host    `json:"hosts,omitempty"`
	LocationID   string    `json:"locationId,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	HasCapacity  bool      `json:"-"`
	Capacity     int       `json:"capacity,omitempty"`
	BookedCount  int       `json:"bookedCount"`
	WaitlistCount int      `json:"waitlistCount"`
}

// SessionSummary is the persistent shadow of a session's mutable counters.
type SessionSummary struct {
	TenantID      string    `json:"tenantId"`
	SessionID     string    `json:"sessionId"`
	Date          string    `json:"date"`
	HasCapacity   bool      `json:"-"`
	Capacity      int       `json:"capacity,omitempty"`
	BookedCount   int       `json:"bookedCount"`
	WaitlistCount int       `json:"waitlistCount"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Booking is a subject's claim on a session.
type Booking struct {
	TenantID    string         `json:"tenantId"`
	SessionID   string         `json:"sessionId"`
	BookingID   string         `json:"bookingId"`
	SubjectID   string         `json:"subjectId"`
	SubjectType string         `json:"subjectType"`
	Status      BookingStatus  `json:"status"`
	Source      string         `json:"source,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty"`
}

// AttendanceRecord is the outcome of a check-in, one per booking.
type AttendanceRecord struct {
	TenantID      string           `json:"tenantId"`
	SessionID     string           `json:"sessionId"`
	BookingID     string           `json:"bookingId"`
	Status        AttendanceStatus `json:"status"`
	CheckInTime   *time.Time       `json:"checkInTime,omitempty"`
	CheckInMethod CheckInMethod    `json:"checkInMethod"`
	HasCoords     bool             `json:"-"`
	CheckInLat    float64          `json:"checkInLat,omitempty"`
	CheckInLng    float64          `json:"checkInLng,omitempty"`
	// DistanceMeters is the Haversine distance between the check-in
	// coordinates and the session's location, set only when a GPS check-in
	// was validated against a location with known coordinates. It is not
	// persisted; it is recomputed and attached to the Create check-in
	// response each time.
	DistanceMeters *float64  `json:"distanceMeters,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
