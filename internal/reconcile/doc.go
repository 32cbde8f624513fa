// Package reconcile implements the merge-join that turns two checksum
// streams into the change events needed to heal a replica.
//
// The iterator walks the truth and replica streams in lock step. Both must
// be drawn with the same salt and be strictly ascending by object id:
//
//	truth:   (1,5) (2,7) (3,9)
//	replica:       (2,7) (3,1) (4,2)
//	events:  CREATE_OR_UPDATE(1) CREATE_OR_UPDATE(3) DELETE(4)
//
// The iterator holds only the two cursors, so a pass over millions of rows
// runs in constant memory. Callers page the events they pull.
package reconcile
