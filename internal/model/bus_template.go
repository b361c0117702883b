package model

// BusTemplate describes the static layout of a bus type.  Templates are
// consumed read-only by the reservation core: an availability snapshot is
// only well formed when its template is present, so the rendering side
// never has to guess the layout from seat labels.
//
// Fields:
//
//	ID            – primary key identifier.
//	Name          – template name, e.g. "Double Decker 2+2".
//	Floors        – number of floors (1 or 2).
//	Rows          – rows per floor.
//	ColumnPattern – column arrangement per row, e.g. "2+2" or "1+2".
//	SeatCount     – total number of seats produced by the template.
type BusTemplate struct {
	ID            uint64 // bus_templates.id
	Name          string // bus_templates.name
	Floors        uint8  // bus_templates.floors
	Rows          uint8  // bus_templates.rows
	ColumnPattern string // bus_templates.column_pattern
	SeatCount     uint16 // bus_templates.seat_count
}
