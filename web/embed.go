// Package web holds the embedded browser assets served by the HTTP layer.
package web

import _ "embed"

// ChatRoomPage is the chat room client served at GET /{room}.
//
//go:embed static/chatRoom.html
var ChatRoomPage []byte
