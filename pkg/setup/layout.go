package setup

// sectionSpec describes the encoding of one section kind.
type sectionSpec struct {
	name       string // default main array name
	prefix     string // auxiliary object name prefix
	typeName   string // struct tag in declaration text
	size       int
	aux        AuxKind
	roles      []Role
	terminated bool
	newEntry   func() Entry
}

var specs = [NumSections]sectionSpec{
	Pads: {
		name: "pads", prefix: "pad", typeName: "pad", size: 44,
		aux: String, roles: []Role{RoleName},
		newEntry: func() Entry { return &Pad{} },
	},
	Pad3ds: {
		name: "pad3ds", prefix: "pad3d", typeName: "pad3d", size: 68,
		aux: String, roles: []Role{RoleName},
		newEntry: func() Entry { return &Pad{BBox: &BBox{}} },
	},
	PathTables: {
		name: "path_tables", prefix: "path_table", typeName: "path_table_entry", size: 16,
		aux: IDList, roles: []Role{RoleNeighbors, RoleGroups}, terminated: true,
		newEntry: func() Entry { return &PathTableEntry{} },
	},
	PathLinks: {
		name: "path_links", prefix: "path_link", typeName: "path_link_entry", size: 12,
		aux: IDList, roles: []Role{RoleNeighbors, RoleIndices}, terminated: true,
		newEntry: func() Entry { return &PathLinkEntry{} },
	},
	PathSets: {
		name: "path_sets", prefix: "path_set", typeName: "path_set_entry", size: 8,
		aux: IDList, roles: []Role{RoleIDs}, terminated: true,
		newEntry: func() Entry { return &PathSetEntry{} },
	},
	AILists: {
		name: "ai_lists", prefix: "ai_list", typeName: "ai_list_entry", size: 8,
		aux: Script, roles: []Role{RoleScript}, terminated: true,
		newEntry: func() Entry { return &AIListEntry{} },
	},
	PadNames: {
		name: "pad_names", prefix: "pad_names", typeName: "pad_name_entry", size: 4,
		aux: String, roles: []Role{RoleName}, terminated: true,
		newEntry: func() Entry { return &NameEntry{} },
	},
	Pad3dNames: {
		name: "pad3d_names", prefix: "pad3d_names", typeName: "pad3d_name_entry", size: 4,
		aux: String, roles: []Role{RoleName}, terminated: true,
		newEntry: func() Entry { return &NameEntry{} },
	},
}

// Trailer owns the filler after the last section.
const Trailer = NumSections

const trailerPrefix = "trailer"

// layout is the immutable section ordering handed to the parser, the
// reader and the assembler.
type layout struct {
	specs *[NumSections]sectionSpec
	// emission is the byte order of sections.
	emission []Kind
	// header is the order of the header's pointer fields.
	header []Kind
}

var defaultLayout = &layout{
	specs:    &specs,
	emission: []Kind{Pads, Pad3ds, PathTables, PathLinks, PathSets, AILists, PadNames, Pad3dNames},
	header:   []Kind{PathTables, PathLinks, PathSets, AILists, Pads, Pad3ds, PadNames, Pad3dNames},
}

func (l *layout) spec(k Kind) *sectionSpec {
	return &l.specs[k]
}

// HeaderOrder returns the section kinds in header field order.
func HeaderOrder() []Kind {
	return append([]Kind(nil), defaultLayout.header...)
}

func (s *sectionSpec) hasRole(r Role) bool {
	for _, x := range s.roles {
		if x == r {
			return true
		}
	}
	return false
}
