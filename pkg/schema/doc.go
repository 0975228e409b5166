/*
Package schema loads form definitions from YAML or JSON files and keeps them
in a Registry.

One file describes one form:

	id: add_course
	title: Add course
	steps:
	  - title: Basics
	    fields:
	      - name: title
	        label: Title
	        rules:
	          - kind: required
	          - kind: max_length
	            max: 80
	      - name: cover
	        type: file

When id is omitted the file name without extension is used. Every form is
checked with validation.CheckSchema before it is registered.
*/
package schema
