package models

// OrderCounter is the single row backing monotonic order number assignment.
// It is incremented inside the settlement transaction so numbers are unique
// and gap-minimal.
type OrderCounter struct {
	ID    int   `gorm:"column:id;primaryKey"`
	Value int64 `gorm:"column:value;not null;default:0"`
}
