package simpleoss

var aclVisibility = map[ACL]Visibility{
	ACLPublicRead:      VisibilityPublic,
	ACLPublicReadWrite: VisibilityPublic,
	ACLPrivate:         VisibilityPrivate,
}

// ToACL maps a visibility to an OSS ACL. Anything but public is private.
func ToACL(v Visibility) ACL {
	if v == VisibilityPublic {
		return ACLPublicRead
	}
	return ACLPrivate
}

// ToVisibility maps an OSS ACL to a visibility. Unknown ACLs are private.
func ToVisibility(acl ACL) Visibility {
	if v, ok := aclVisibility[acl]; ok {
		return v
	}
	return VisibilityPrivate
}
