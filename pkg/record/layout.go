package record

// Protocol constants shared by both sides of the block. The layout is a
// packed little-endian struct with no padding between fields; the field
// order is append-only across interface versions. Reordering or resizing
// any field breaks binary compatibility with a peer built against another
// version, so none of the values below are configurable.
const (
	// InterfaceVersion is the protocol revision this layout implements.
	// The long error text field exists since version 4.
	InterfaceVersion = 4

	// NamePrefix is required at the start of every shared block name.
	NamePrefix = "BI"

	// TextWidth is the byte width of short text fields, terminator included.
	TextWidth = 20
	// ErrorWidth is the byte width of the short error text field.
	ErrorWidth = 100
	// ErrorLongWidth is the byte width of the long error text field.
	ErrorLongWidth = 201

	// UserSlots is the number of user-defined display slots.
	UserSlots = 6
)

// Field offsets. Each entry is the previous offset plus the previous width.
const (
	testRunningOff   = 0
	dutyCycleOff     = testRunningOff + 4
	versionOff       = dutyCycleOff + 4
	windowTitleOff   = versionOff + 4
	cycleOff         = windowTitleOff + TextWidth
	statusCodeOff    = cycleOff + 4
	statusTextOff    = statusCodeOff + 4
	errorCountOff    = statusTextOff + TextWidth
	errorTextOff     = errorCountOff + 4
	errorSeverityOff = errorTextOff + ErrorWidth
	writeLabelOff    = errorSeverityOff + 4
	writeOpsOff      = writeLabelOff + TextWidth
	readLabelOff     = writeOpsOff + 8
	readOpsOff       = readLabelOff + TextWidth
	verifyLabelOff   = readOpsOff + 8
	verifyOpsOff     = verifyLabelOff + TextWidth
	user1EnabledOff  = verifyOpsOff + 8
	user1LabelOff    = user1EnabledOff + 1
	user1ValueOff    = user1LabelOff + TextWidth
	user2EnabledOff  = user1ValueOff + TextWidth
	user2LabelOff    = user2EnabledOff + 1
	user2ValueOff    = user2LabelOff + TextWidth
	displayTextOff   = user2ValueOff + TextWidth
	newErrorOff      = displayTextOff + 1
	newStatusOff     = newErrorOff + 1
	newUser1Off      = newStatusOff + 1
	newUser2Off      = newUser1Off + 1
	testStoppedOff   = newUser2Off + 1
	user3EnabledOff  = testStoppedOff + 1
	user3LabelOff    = user3EnabledOff + 1
	user3ValueOff    = user3LabelOff + TextWidth
	user4EnabledOff  = user3ValueOff + TextWidth
	user4LabelOff    = user4EnabledOff + 1
	user4ValueOff    = user4LabelOff + TextWidth
	user5EnabledOff  = user4ValueOff + TextWidth
	user5LabelOff    = user5EnabledOff + 1
	user5ValueOff    = user5LabelOff + TextWidth
	user6EnabledOff  = user5ValueOff + TextWidth
	user6LabelOff    = user6EnabledOff + 1
	user6ValueOff    = user6LabelOff + TextWidth
	errorLongOff     = user6ValueOff + TextWidth

	// Size is the total block length in bytes.
	Size = errorLongOff + ErrorLongWidth
)

// slotLayout locates one user-defined slot. Slots 1 and 2 predate slots 3
// through 6 and are the only ones with a new-value notification flag.
type slotLayout struct {
	enabled int
	label   int
	value   int
	flag    int // -1 when the slot has no flag
}

var userSlotTable = [UserSlots]slotLayout{
	{user1EnabledOff, user1LabelOff, user1ValueOff, newUser1Off},
	{user2EnabledOff, user2LabelOff, user2ValueOff, newUser2Off},
	{user3EnabledOff, user3LabelOff, user3ValueOff, -1},
	{user4EnabledOff, user4LabelOff, user4ValueOff, -1},
	{user5EnabledOff, user5LabelOff, user5ValueOff, -1},
	{user6EnabledOff, user6LabelOff, user6ValueOff, -1},
}
