// Package model defines the variables a group content view renders from. The
// eight core variables mirror the theme hook contract: attributes,
// title_prefix, page, title_attributes, url, label, content_attributes,
// content and title_suffix. Attribute collections escape their own values;
// Markup fragments are trusted and inserted verbatim; url and label are plain
// scalars and always escaped by the template engine.
package model
