// folders.go
//
// A CRM data service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-crm.
// jam-build-crm is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-crm is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-crm.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package storage

import (
	"path"
	"strings"
)

// OthersFolder receives every extension missing from the table.
const OthersFolder = "others"

var folderByExtension = map[string]string{
	".jpg":  "images",
	".jpeg": "images",
	".png":  "images",

	".mp4": "videos",
	".mkv": "videos",
	".flv": "videos",
	".avi": "videos",
	".mov": "videos",

	".mp3": "audio",
	".m4a": "audio",

	".pdf":  "documents",
	".doc":  "documents",
	".docx": "documents",
	".txt":  "documents",
	".xls":  "documents",
	".xlsx": "documents",
	".ppt":  "documents",
	".pptx": "documents",

	".ai": "designs",

	".py":   "code",
	".js":   "code",
	".ts":   "code",
	".json": "code",
	".jsx":  "code",
	".java": "code",
	".c":    "code",
	".html": "code",
	".htm":  "code",
	".css":  "code",
}

// FolderFor maps a file name to its top level folder by extension, ignoring case.
func FolderFor(name string) string {
	if folder, ok := folderByExtension[strings.ToLower(path.Ext(name))]; ok {
		return folder
	}
	return OthersFolder
}

// baseName strips any client supplied directory part, including windows separators.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// ResolveKey turns a public URL, a full key or a bare "<epoch-ms>-<name>" into the bucket key.
// Only the last path segment is trusted; the folder is always derived again from its
// extension.
func ResolveKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	name := baseName(ref)
	if name == "" {
		return ""
	}
	return FolderFor(name) + "/" + name
}
