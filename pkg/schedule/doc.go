// Package schedule computes start and completion estimates for a forest of
// hierarchical tasks.
//
// A run normalizes keys, inherits due dates and priorities down the tree,
// scores urgency, and then places tasks greedily in urgency order inside a
// weekly working window. Tasks sharing an owner are serialized unless marked
// parallel; manual and completed tasks keep the timing they declare. Parents
// span their children.
//
// Run mutates the forest it is given and is not safe for concurrent use on
// the same forest.
package schedule
