package pose

// Connection is an edge of the body skeleton drawn between two joints.
type Connection struct {
	From Joint `json:"from"`
	To   Joint `json:"to"`
}

// Connections lists the torso and limb edges used by overlay renderers.
var Connections = []Connection{
	// Torso
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftHip, RightHip},

	// Arms
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},

	// Legs
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
}
