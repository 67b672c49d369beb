// Package domain holds the chat entities shared by the core and the storage
// backends: identities, direct and group messages, groups with their member
// lists, and the contracts the core consumes (Store, Directory, GroupAdmin).
package domain
