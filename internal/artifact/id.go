package artifact

import "github.com/google/uuid"

// ID returns the stable identifier of the artifact at path within taskID.
// Creating, updating and deleting the same path always yields the same id.
func ID(taskID, path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(taskID+"/"+path)).String()
}
