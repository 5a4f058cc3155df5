// Package domain contains the core business entities, value objects, and
// domain logic of the reminder engine: tasks, projects, reminder schedules,
// notification preferences, notifications and the recurrence calendar
// arithmetic. It has no dependencies on infrastructure or delivery mechanisms.
package domain
