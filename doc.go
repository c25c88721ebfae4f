/*
Package bsonarchive serializes Go values to and from streams of BSON documents.

An archive stream is the concatenation of root documents, each one framed by
its own length prefix. Values are driven through the traversal protocol of
the archive package by the walk package: structs become documents, slices
become arrays and scalars are stored with their natural BSON type.

Marshal and Unmarshal work on a single document:

	type User struct {
		ID   int64
		Name string
		Tags []string `bson:"labels"`
	}

	data, err := bsonarchive.Marshal(&User{ID: 10, Name: "foo"})
	...
	var u User
	err = bsonarchive.Unmarshal(data, &u)

Save and Load write and read several root documents, one per value.
Values that are not documents, like integers or slices, are stored in a
document with a single field named "value0".

For finer control, use the Encoder and Decoder of the archive package
directly, and the store package to persist archives in a Pebble database.
*/
package bsonarchive
