/*
Package ports defines the driven ports (interfaces) for formdraft.

These interfaces decouple draft persistence from concrete backends, so a
draft store can run on process memory, local files or Redis without changing
its contract.

# Key Interfaces

  - KVStore: reads, batch-writes and deletes opaque text values by key.
  - DistributedLocker: provides distributed locking for concurrent access to one form.
*/
package ports
