// SPDX-License-Identifier: GPL-3.0-or-later

// Package replica provides a packet replicator stage for discrete-event
// simulations of layered network stacks.
//
// A [*Replicator] sits between an upper and a lower layer. Packets travelling
// [DirectionUp] are forwarded to the upper layer unchanged. Packets travelling
// [DirectionDown] are duplicated [*Replicator.Replicas] times and each copy is
// submitted to the lower layer with a delay of spacing*i, where i is the
// copy index. The original packet is then released.
//
// The stage does not own any collaborator. You construct it with a
// [StageDeps] that provides the [Allocator], the [UpperLayer], the
// [LowerLayer], the [Dropper] and an optional [*slog.Logger]. The package
// provides concrete implementations of the first four: [*Pool], [StageFunc],
// [*Link] and [*DropCounter].
//
// The [*Scheduler] is a virtual-time event loop. A [*Link] uses it to turn
// [LowerLayer.SendDown] delays into later events. Everything runs within
// a single goroutine: the stage performs no locking.
//
// Stages are instantiated by name through a [*Registry]. Use
// [RegisterReplicator] to add the replicator to a registry.
//
// The [*PCAPTrace] type allows you to capture the raw IP payload of packets
// delivered by a [*Link] in PCAP format, stamped with virtual time, so that
// you can inspect the replicas using tools such as wireshark.
package replica
