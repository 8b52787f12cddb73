/*
Package storage provides the key/value interface used to persist function
definitions.

Values are typically whole serialized objects, so updating one field of a
definition rewrites the entire object. Definitions change rarely and are
small, which keeps this cheap.

Bolt is the durable implementation, MemStore keeps everything in memory and
is meant for tests.
*/
package storage
