package internal

// groupByContentHash partitions files with a content hash into sets of
// byte-identical files. Singleton sets are not emitted: a file equal only
// to itself is not a duplicate. The outer slice follows batch order via the
// first member of each set.
func groupByContentHash(files []*MediaFile) [][]*MediaFile {
	byHash := make(map[string][]*MediaFile)
	var hashOrder []string
	for _, f := range files {
		if f.ContentHash == "" || f.Flagged {
			continue
		}
		if _, seen := byHash[f.ContentHash]; !seen {
			hashOrder = append(hashOrder, f.ContentHash)
		}
		byHash[f.ContentHash] = append(byHash[f.ContentHash], f)
	}

	var groups [][]*MediaFile
	for _, hash := range hashOrder {
		if members := byHash[hash]; len(members) >= 2 {
			groups = append(groups, members)
		}
	}
	return groups
}
