package model

//
// Key-value store
//

// KeyValueStore is a generic key-value store. Each key is independently
// atomic: there is no way to group writes into a transaction.
type KeyValueStore interface {
	// Get gets the value of the given key or returns an
	// error if there is no such key or we cannot read
	// from the key-value store.
	Get(key string) (value []byte, err error)

	// Set sets the value of the given key and returns
	// whether the operation was successful or not.
	Set(key string, value []byte) (err error)

	// Delete removes the given key. Deleting a key that
	// does not exist is not an error.
	Delete(key string) (err error)
}
