package partition

import "hash/fnv"

// Count is the number of journal partitions. Changing it remaps every stored file.
const Count = 64

// For returns the journal partition of a file UUID.
func For(fileUUID string) int {
	h := fnv.New32a()
	h.Write([]byte(fileUUID))
	return int(h.Sum32() % Count)
}
