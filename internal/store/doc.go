// Package store writes the persisted output tree: per-topic JSON
// documents under the forum hierarchy, the write-once _meta.json chain,
// the member list, and downloaded media files. It also scans an
// existing tree to build the resume index.
package store
