// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

// Version is the hgraph CLI's own version string. It is a compile-time
// constant literal, so it cannot be overridden at link time the way the
// teacher's cmd/tofu/version.go package-level var can, and there is no
// dedicated version package.
const Version = "0.1.0"
