package model

import "time"

// Course is a row of the `courses` table.
type Course struct {
	ID           uint64 // courses.id
	Code         string // courses.course_code
	Name         string // courses.course_name
	DepartmentID uint64 // courses.department_id
}

// Exam is a scheduled examination for a course. The exam date is a
// calendar day; the hour is chosen per registration through a timeslot.
//
// Fields:
//
//	ID          – primary key identifier.
//	ExamType    – human readable title such as "Midterm" or "Final".
//	CourseID    – course being examined.
//	ExamDate    – calendar day of the exam (time part is zero, UTC).
//	ProfessorID – proctoring professor.
//	TimeslotID  – default timeslot suggested to students.
type Exam struct {
	ID          uint64    // exams.id
	ExamType    string    // exams.exam_type
	CourseID    uint64    // exams.course_id
	ExamDate    time.Time // exams.exam_date
	ProfessorID uint64    // exams.professor_id
	TimeslotID  uint8     // exams.timeslot_id
}

// Location is a testing room. Name carries the campus, RoomNumber the
// room inside one of its buildings.
type Location struct {
	ID         uint64 // locations.id
	Name       string // locations.name
	RoomNumber string // locations.room_number
}

// Building belongs to a location.
type Building struct {
	ID         uint64 // buildings.id
	Name       string // buildings.name
	LocationID uint64 // buildings.location_id
}

// ExamLocation assigns a seat capacity to an exam in a location. The
// pair (ExamID, LocationID) is what students book.
type ExamLocation struct {
	ExamID     uint64 // exam_locations.exam_id
	LocationID uint64 // exam_locations.location_id
	Capacity   int    // exam_locations.capacity
}

// DateLayout is the wire and storage layout of exam dates.
const DateLayout = "2006-01-02"

// FormatLocationLabel renders the full location label used in faculty
// listings, e.g. "North Campus – Science Hall, Room 101".
func FormatLocationLabel(campus, building, room string) string {
	if building == "" {
		return campus + ", Room " + room
	}
	return campus + " – " + building + ", Room " + room
}
