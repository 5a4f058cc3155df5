package domain

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Reminder offset limits.
const (
	MinReminderOffset   = 1
	MaxReminderOffset   = 10
	MaxReminderOffsets  = 5
	reminderTypePattern = "reminder_%d_days"
)

// DefaultReminderOffsets applies to any task without a stored schedule.
var DefaultReminderOffsets = []int{7, 3, 1}

var scheduleValidator = validator.New()

// ReminderSchedule lists how many days before the due date reminders fire.
// There is at most one schedule per task.
type ReminderSchedule struct {
	TaskID  uuid.UUID `json:"task_id" validate:"required"`
	Offsets []int     `json:"reminder_offsets" validate:"max=5,unique,dive,min=1,max=10"`
}

// NewReminderSchedule builds a validated schedule. Offsets are stored in
// descending order.
func NewReminderSchedule(taskID uuid.UUID, offsets []int) (*ReminderSchedule, error) {
	s := &ReminderSchedule{TaskID: taskID, Offsets: append([]int(nil), offsets...)}
	sort.Sort(sort.Reverse(sort.IntSlice(s.Offsets)))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultSchedule returns the default {7,3,1} schedule for taskID.
func DefaultSchedule(taskID uuid.UUID) *ReminderSchedule {
	return &ReminderSchedule{TaskID: taskID, Offsets: append([]int(nil), DefaultReminderOffsets...)}
}

// Validate checks the range, uniqueness and size constraints of the offsets.
func (s *ReminderSchedule) Validate() error {
	if err := scheduleValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReminderOffsets, err)
	}
	return nil
}

// Matches reports whether a reminder is due for the given days-until-due.
func (s *ReminderSchedule) Matches(daysUntilDue int) bool {
	for _, d := range s.Offsets {
		if d == daysUntilDue {
			return true
		}
	}
	return false
}

// ForTask returns a copy of the schedule bound to another task.
func (s *ReminderSchedule) ForTask(taskID uuid.UUID) *ReminderSchedule {
	return &ReminderSchedule{TaskID: taskID, Offsets: append([]int(nil), s.Offsets...)}
}

// ReminderType is the notification type for a reminder d days before due.
func ReminderType(days int) NotificationType {
	return NotificationType(fmt.Sprintf(reminderTypePattern, days))
}

// ProjectReminderType is the notification type for a project reminder d days
// before due.
func ProjectReminderType(days int) NotificationType {
	return NotificationType(fmt.Sprintf("project_"+reminderTypePattern, days))
}
